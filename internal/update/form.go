package update

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/views"
)

func newFormInputs() (textinput.Model, textinput.Model) {
	task := textinput.New()
	task.Placeholder = "task name"
	task.CharLimit = 200
	task.Width = 40

	weight := textinput.New()
	weight.Placeholder = fmt.Sprintf("%d-%d", model.MinWeight, model.MaxWeight)
	weight.CharLimit = 3
	weight.Width = 6
	return task, weight
}

func (m Model) openForm(kind FormKind, parentID, targetID int, initial model.Fields) Model {
	task, weight := newFormInputs()
	task.SetValue(initial.Task)
	weight.SetValue(strconv.Itoa(initial.Weight))
	task.Focus()

	typeIndex := 0
	for i, t := range model.TaskTypes() {
		if t == initial.Type {
			typeIndex = i
		}
	}
	m.Form = FormState{
		Kind:      kind,
		ParentID:  parentID,
		TargetID:  targetID,
		Focus:     fieldTask,
		TypeIndex: typeIndex,
		task:      task,
		weight:    weight,
	}
	m.Mode = ModeForm
	return m
}

func defaultFields() model.Fields {
	return model.Fields{Weight: model.DefaultWeight, Type: model.TaskTypeDevelopment}
}

func (m Model) handleFormKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Mode = ModeBrowse
		m.Form = FormState{}
		m.setStatus("cancelled", LevelInfo)
		return m
	case "enter":
		return m.submitForm()
	case "tab", "down":
		m.focusField((m.Form.Focus + 1) % fieldCount)
		return m
	case "shift+tab", "up":
		m.focusField((m.Form.Focus + fieldCount - 1) % fieldCount)
		return m
	}

	if m.Form.Focus == fieldType {
		types := model.TaskTypes()
		switch msg.String() {
		case "left", "h":
			m.Form.TypeIndex = (m.Form.TypeIndex + len(types) - 1) % len(types)
		case "right", "l", " ":
			m.Form.TypeIndex = (m.Form.TypeIndex + 1) % len(types)
		}
		return m
	}

	input := &m.Form.task
	if m.Form.Focus == fieldWeight {
		input = &m.Form.weight
	}
	if msg.Type == tea.KeyRunes {
		input.SetValue(input.Value() + string(msg.Runes))
		input.CursorEnd()
		return m
	}
	*input, _ = input.Update(msg)
	return m
}

func (m *Model) focusField(field int) {
	m.Form.Focus = field
	m.Form.task.Blur()
	m.Form.weight.Blur()
	switch field {
	case fieldTask:
		m.Form.task.Focus()
	case fieldWeight:
		m.Form.weight.Focus()
	}
}

// formFields validates the form input before anything reaches the store.
func (m Model) formFields() (model.Fields, error) {
	raw := strings.TrimSpace(m.Form.weight.Value())
	weight, err := strconv.Atoi(raw)
	if err != nil {
		return model.Fields{}, fmt.Errorf("%w: %q is not a number", model.ErrInvalidWeight, raw)
	}
	f := model.Fields{
		Task:   strings.TrimSpace(m.Form.task.Value()),
		Weight: weight,
		Type:   model.TaskTypes()[m.Form.TypeIndex],
	}
	if err := f.Validate(); err != nil {
		return model.Fields{}, err
	}
	return f, nil
}

func (m Model) submitForm() Model {
	f, err := m.formFields()
	if err != nil {
		m.Form.Err = err.Error()
		return m
	}

	var msg string
	switch m.Form.Kind {
	case FormAddRoot:
		node := m.Store.AddRoot(f)
		m.SelectedID = node.ID
		msg = fmt.Sprintf("added root task %d %q", node.ID, node.Task)
	case FormAddChild:
		node, err := m.Store.AddChild(m.Form.ParentID, f)
		if err != nil {
			m.Form.Err = err.Error()
			return m
		}
		m.SelectedID = node.ID
		msg = fmt.Sprintf("added subtask %d %q under %d", node.ID, node.Task, m.Form.ParentID)
	case FormEdit:
		if err := m.Store.Edit(m.Form.TargetID, f); err != nil {
			m.Form.Err = err.Error()
			return m
		}
		msg = fmt.Sprintf("updated task %d", m.Form.TargetID)
	}

	m.Mode = ModeBrowse
	m.Form = FormState{}
	m.afterMutation()
	m.setStatus(msg, LevelSuccess)
	return m
}

func (m Model) renderForm() string {
	typeNames := make([]string, 0, len(model.TaskTypes()))
	for i, t := range model.TaskTypes() {
		name := string(t)
		if i == m.Form.TypeIndex {
			name = "<" + name + ">"
		}
		typeNames = append(typeNames, name)
	}
	title := string(m.Form.Kind)
	switch m.Form.Kind {
	case FormAddChild:
		title = fmt.Sprintf("%s of %d", title, m.Form.ParentID)
	case FormEdit:
		title = fmt.Sprintf("%s %d", title, m.Form.TargetID)
	}
	return views.RenderForm(views.FormData{
		Title: title,
		Fields: []views.FormField{
			{Label: "task", View: m.Form.task.View(), Focused: m.Form.Focus == fieldTask},
			{Label: "weight", View: m.Form.weight.View(), Focused: m.Form.Focus == fieldWeight},
			{Label: "type", View: strings.Join(typeNames, " "), Focused: m.Form.Focus == fieldType},
		},
		Error: m.Form.Err,
	})
}
