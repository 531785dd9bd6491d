package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicesurvey/anketabot-go/survey"
	"github.com/voicesurvey/anketabot-go/survey/formsapi"
	"github.com/voicesurvey/anketabot-go/survey/yamlform"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Fetch and print the active form's question list",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		newLogger(cfg.LogLevel)

		var source survey.QuestionSource
		if cfg.QuestionsFile != "" {
			source = yamlform.New(cfg.QuestionsFile)
		} else {
			source, err = formsapi.NewFromEnv()
			if err != nil {
				return err
			}
		}

		qs, err := source.Questions(context.Background(), cfg.FormID)
		if err != nil {
			return err
		}

		fmt.Printf("form %s: %d questions\n", cfg.FormID, len(qs))
		for i, q := range qs {
			required := "optional"
			if q.Required {
				required = "required"
			}
			fmt.Printf("%2d. [%s, %s] %s\n", i+1, q.Kind, required, q.Text)
			if q.Hint != "" {
				fmt.Printf("    hint: %s\n", q.Hint)
			}
			for j, opt := range q.Options {
				fmt.Printf("    %d) %s\n", j+1, opt)
			}
		}
		return nil
	},
}
