package survey

import "testing"

func validSet() QuestionSet {
	return QuestionSet{
		{ID: "q1", Text: "Как вас зовут?", Kind: KindText, Required: true},
		{ID: "q2", Text: "Оцените доступность", Kind: KindSelect, Required: true, Options: []string{"Хорошо", "Плохо"}},
	}
}

func TestQuestionSetValidate(t *testing.T) {
	if err := validSet().Validate(); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}

	cases := []struct {
		name string
		set  QuestionSet
	}{
		{"empty", QuestionSet{}},
		{"missing id", QuestionSet{{Text: "x", Kind: KindText}}},
		{"duplicate id", QuestionSet{
			{ID: "q1", Text: "a", Kind: KindText},
			{ID: "q1", Text: "b", Kind: KindText},
		}},
		{"missing text", QuestionSet{{ID: "q1", Kind: KindText}}},
		{"select without options", QuestionSet{{ID: "q1", Text: "x", Kind: KindSelect}}},
		{"unknown kind", QuestionSet{{ID: "q1", Text: "x", Kind: Kind("slider")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.set.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestQuestionHasOptions(t *testing.T) {
	q := Question{Kind: KindSelect, Options: []string{"Да", "Нет"}}
	if !q.HasOptions() {
		t.Fatal("select with options should match")
	}
	if (Question{Kind: KindSelect}).HasOptions() {
		t.Fatal("select without options should not match")
	}
	if (Question{Kind: KindText, Options: []string{"x"}}).HasOptions() {
		t.Fatal("text kind never matches options")
	}
	cb := Question{Kind: KindCheckbox, Options: []string{"a"}}
	if !cb.HasOptions() {
		t.Fatal("checkbox with options should match")
	}
}

func TestQuestionIsPhone(t *testing.T) {
	q := Question{Kind: KindText, Hint: "в формате +7XXXXXXXXXX"}
	if !q.IsPhone() {
		t.Fatal("hint with +7 marks a phone field")
	}
	if (Question{Kind: KindText, Hint: "любой текст"}).IsPhone() {
		t.Fatal("plain hint is not a phone field")
	}
	if (Question{Kind: KindTextarea, Hint: "+7"}).IsPhone() {
		t.Fatal("only text kind can be a phone field")
	}
}
