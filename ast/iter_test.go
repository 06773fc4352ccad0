package ast

import "testing"

func textNode(s string) Node {
	return &TextNode{Value: &StaticValue{Value: s}}
}

func textOf(n Node) string {
	return n.(*TextNode).Value.(*StaticValue).Value
}

func TestChildrenIterSplicesIfBranches(t *testing.T) {
	elem := &Element{Kind: &If{
		Branches: []IfBranch{
			{Children: []Node{textNode("a"), textNode("b")}},
			{Children: nil},
			{Children: []Node{textNode("c")}},
		},
		Else: &ElseBranch{Children: []Node{textNode("d")}},
	}}
	it := NewChildrenIter(elem)
	var got []string
	for n := it.Next(); n != nil; n = it.Next() {
		got = append(got, textOf(n))
	}
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if n := NewChildrenIter(elem).Count(); n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
}

func TestChildrenIterLeafKinds(t *testing.T) {
	for _, kind := range []ElementKind{
		&TemplateRef{},
		&Include{},
		&SlotElem{},
	} {
		it := NewChildrenIter(&Element{Kind: kind})
		if n := it.Next(); n != nil {
			t.Errorf("%T yielded a child", kind)
		}
		if c := NewChildrenIter(&Element{Kind: kind}).Count(); c != 0 {
			t.Errorf("%T Count != 0", kind)
		}
	}
}

func TestChildrenIterNormal(t *testing.T) {
	elem := &Element{Kind: &Normal{Children: []Node{textNode("x")}}}
	it := NewChildrenIter(elem)
	if n := it.Next(); n == nil || textOf(n) != "x" {
		t.Fatal("missing child")
	}
	if it.Next() != nil {
		t.Fatal("extra child")
	}
}

func TestBindingMapCollector(t *testing.T) {
	c := NewBindingMapCollector()
	i0, ok := c.AddField("a")
	i1, _ := c.AddField("a")
	i2, _ := c.AddField("b")
	if !ok || i0 != 0 || i1 != 1 || i2 != 0 {
		t.Errorf("slot allocation wrong: %d %d %d", i0, i1, i2)
	}
	c.DisableField("b")
	if _, ok := c.AddField("b"); ok {
		t.Error("disabled field still allocates")
	}
	if c.FieldEnabled("b") {
		t.Error("disabled field reported enabled")
	}
	fields := c.ListFields()
	if len(fields) != 1 || fields[0].Name != "a" || fields[0].Count != 2 {
		t.Errorf("ListFields = %v", fields)
	}
	c.DisableAll()
	if c.FieldEnabled("a") || c.ListFields() != nil {
		t.Error("DisableAll not effective")
	}
}

func TestBindingMapKeys(t *testing.T) {
	c := NewBindingMapCollector()
	keys := &BindingMapKeys{}
	idx, _ := c.AddField("x")
	keys.Add("x", idx)
	if keys.IsEmpty(c) {
		t.Error("keys with an enabled field reported empty")
	}
	c.DisableField("x")
	if !keys.IsEmpty(c) {
		t.Error("keys with only disabled fields reported non-empty")
	}
	var nilKeys *BindingMapKeys
	if !nilKeys.IsEmpty(c) || nilKeys.Keys() != nil {
		t.Error("nil keys misbehave")
	}
}
