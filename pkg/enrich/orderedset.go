/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package enrich

// orderedSet keeps first-seen order and drops repeats.
type orderedSet[T comparable] struct {
	items []T
	seen  map[T]struct{}
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{seen: make(map[T]struct{})}
}

// Add appends v unless it is already present and reports whether it was added.
func (s *orderedSet[T]) Add(v T) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}

	s.seen[v] = struct{}{}
	s.items = append(s.items, v)

	return true
}

func (s *orderedSet[T]) Len() int {
	return len(s.items)
}

// Items returns the members in insertion order.
func (s *orderedSet[T]) Items() []T {
	return s.items
}
