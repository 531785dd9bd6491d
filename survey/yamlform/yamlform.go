package yamlform

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/voicesurvey/anketabot-go/survey"
)

// Source serves question sets from a YAML file shaped as:
//
//	forms:
//	  form-1:
//	    - id: q1
//	      text: "Выберите вариант"
//	      type: select
//	      required: true
//	      options: ["Да", "Нет"]
//
// The file is re-read on every load so edits apply without a restart.
type Source struct {
	path string
}

var _ survey.QuestionSource = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

type file struct {
	Forms map[string]survey.QuestionSet `yaml:"forms"`
}

func (s *Source) Questions(ctx context.Context, formID string) (survey.QuestionSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", survey.ErrSourceUnavailable, s.path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", survey.ErrSourceUnavailable, s.path, err)
	}

	qs, ok := f.Forms[formID]
	if !ok {
		return nil, fmt.Errorf("%w: form %q not found in %s", survey.ErrSourceUnavailable, formID, s.path)
	}
	if err := qs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed question set: %v", survey.ErrSourceUnavailable, err)
	}
	return qs, nil
}
