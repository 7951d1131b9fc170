package docop

import (
	"sort"
	"strings"
)

// AnnotationChange opens, or changes the value of, the annotation Key from the
// following position on: items must carry Old and receive New.
type AnnotationChange struct {
	Key string
	Old *string
	New *string
}

// AnnotationBoundary closes the keys in Ends and opens or changes the keys in
// Changes. Both lists are sorted and share no key.
type AnnotationBoundary struct {
	Ends    []string
	Changes []AnnotationChange
}

func (AnnotationBoundary) isComponent() {}

func (b AnnotationBoundary) empty() bool {
	return len(b.Ends) == 0 && len(b.Changes) == 0
}

func (b AnnotationBoundary) clone() AnnotationBoundary {
	return AnnotationBoundary{
		Ends:    append([]string(nil), b.Ends...),
		Changes: append([]AnnotationChange(nil), b.Changes...),
	}
}

func (b AnnotationBoundary) equal(o AnnotationBoundary) bool {
	if len(b.Ends) != len(o.Ends) || len(b.Changes) != len(o.Changes) {
		return false
	}
	for i := range b.Ends {
		if b.Ends[i] != o.Ends[i] {
			return false
		}
	}
	return annotationSet(b.Changes).equal(o.Changes)
}

func (b AnnotationBoundary) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, c := range b.Changes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Key)
		sb.WriteString(": ")
		sb.WriteString(formatValue(c.Old))
		sb.WriteString(" -> ")
		sb.WriteString(formatValue(c.New))
	}
	sb.WriteString("}")
	if len(b.Ends) > 0 {
		sb.WriteString(" end ")
		sb.WriteString(strings.Join(b.Ends, ", "))
	}
	return sb.String()
}

// annotationSet is the set of annotation changes in effect at a point of an
// operation, sorted by key.
type annotationSet []AnnotationChange

func (s annotationSet) get(key string) (AnnotationChange, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Key >= key })
	if i < len(s) && s[i].Key == key {
		return s[i], true
	}
	return AnnotationChange{}, false
}

func (s annotationSet) has(key string) bool {
	_, ok := s.get(key)
	return ok
}

func (s annotationSet) equal(o annotationSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].Key != o[i].Key || !equalValue(s[i].Old, o[i].Old) || !equalValue(s[i].New, o[i].New) {
			return false
		}
	}
	return true
}

// apply returns the set after the boundary b.
func (s annotationSet) apply(b AnnotationBoundary) annotationSet {
	out := make(annotationSet, 0, len(s)+len(b.Changes))
	for _, c := range s {
		if !containsString(b.Ends, c.Key) {
			if _, changed := annotationSet(b.Changes).get(c.Key); !changed {
				out = append(out, c)
			}
		}
	}
	out = append(out, b.Changes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// forRetain keeps the changes that modify a retained item.
func (s annotationSet) forRetain() annotationSet {
	var out annotationSet
	for _, c := range s {
		if !equalValue(c.Old, c.New) {
			out = append(out, c)
		}
	}
	return out
}

// forInsert keeps the values given to an inserted item. Old values are
// meaningless for insertions and are cleared.
func (s annotationSet) forInsert() annotationSet {
	var out annotationSet
	for _, c := range s {
		if c.New != nil {
			out = append(out, AnnotationChange{Key: c.Key, New: c.New})
		}
	}
	return out
}

// inverted swaps old and new values.
func (s annotationSet) inverted() annotationSet {
	out := make(annotationSet, len(s))
	for i, c := range s {
		out[i] = AnnotationChange{Key: c.Key, Old: c.New, New: c.Old}
	}
	return out
}

// boundaryTo returns the boundary that turns s into target.
func (s annotationSet) boundaryTo(target annotationSet) AnnotationBoundary {
	var b AnnotationBoundary
	for _, c := range s {
		if !target.has(c.Key) {
			b.Ends = append(b.Ends, c.Key)
		}
	}
	for _, c := range target {
		if old, ok := s.get(c.Key); !ok || !equalValue(old.Old, c.Old) || !equalValue(old.New, c.New) {
			b.Changes = append(b.Changes, c)
		}
	}
	return b
}

// annotationsFromMap turns the annotations stored on a document item into a
// set of insert values.
func annotationsFromMap(a Attributes) annotationSet {
	var out annotationSet
	for _, e := range a.entries {
		out = append(out, AnnotationChange{Key: e.Name, New: Val(e.Value)})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
