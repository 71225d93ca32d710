package manifest

// CategoryGroup is the sources of one category in manifest order.
type CategoryGroup struct {
	Name    string
	Sources []SourceRecord
}

// GroupByCategory groups sources by category. Categories appear in first-seen
// order and sources keep manifest order within each category.
func (m *TopicManifest) GroupByCategory() []CategoryGroup {
	var groups []CategoryGroup
	pos := make(map[string]int)
	for _, s := range m.Sources {
		name := s.Category
		if name == "" {
			name = "Uncategorized"
		}
		i, ok := pos[name]
		if !ok {
			i = len(groups)
			pos[name] = i
			groups = append(groups, CategoryGroup{Name: name})
		}
		groups[i].Sources = append(groups[i].Sources, s)
	}
	return groups
}

// ConceptGroup is the sources mentioning one key concept.
type ConceptGroup struct {
	Concept string
	Sources []SourceRecord
}

// GroupByConcept groups sources by key concept in first-seen order. A source
// with several concepts appears in each group.
func (m *TopicManifest) GroupByConcept() []ConceptGroup {
	var groups []ConceptGroup
	pos := make(map[string]int)
	for _, s := range m.Sources {
		for _, c := range s.KeyConcepts {
			i, ok := pos[c]
			if !ok {
				i = len(groups)
				pos[c] = i
				groups = append(groups, ConceptGroup{Concept: c})
			}
			groups[i].Sources = append(groups[i].Sources, s)
		}
	}
	return groups
}

// TotalWords sums the declared word counts.
func (m *TopicManifest) TotalWords() int {
	total := 0
	for _, s := range m.Sources {
		total += s.WordCount
	}
	return total
}
