package tree

import "github.com/sandeepkv93/tasktree/internal/model"

// SampleForest is the demo project shown when no document exists yet.
func SampleForest() []*model.TaskNode {
	leaf := func(id int, task string, weight int, typ model.TaskType) *model.TaskNode {
		return &model.TaskNode{ID: id, Task: task, Weight: weight, Type: typ, Children: []*model.TaskNode{}}
	}
	return []*model.TaskNode{
		{
			ID: 1, Task: "Project Development", Weight: 100, Type: model.TaskTypeDevelopment, Expanded: true,
			Children: []*model.TaskNode{
				{
					ID: 2, Task: "Frontend Development", Weight: 60, Type: model.TaskTypeDevelopment, Expanded: true,
					Children: []*model.TaskNode{
						leaf(3, "User Interface Design", 30, model.TaskTypeDesign),
						leaf(4, "Feature Implementation", 30, model.TaskTypeDevelopment),
					},
				},
				{
					ID: 5, Task: "Backend Development", Weight: 40, Type: model.TaskTypeDevelopment,
					Children: []*model.TaskNode{
						leaf(6, "API Design", 20, model.TaskTypeDevelopment),
						leaf(7, "Database Design", 20, model.TaskTypeDevelopment),
					},
				},
			},
		},
	}
}

// LoadSample replaces the forest with SampleForest, keeping each node's
// expanded flag.
func (s *Store) LoadSample() {
	s.roots = SampleForest()
	s.nextID = model.MaxID(s.roots) + 1
	s.history = nil
	s.touch()
}
