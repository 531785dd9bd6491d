// Package main runs the accessibility survey bot.
//
// Usage:
//
//	anketabot run        - start the bot (long polling)
//	anketabot questions  - fetch and print the active form's question list
//
// Configuration comes from the environment (a .env file is loaded when
// present): TELEGRAM_TOKEN, FORM_ID, FORMS_BASE_URL, OPENAI_API_KEY and
// friends. See the per-package Config types for the full set.
package main

import (
	"fmt"
	"os"

	"github.com/voicesurvey/anketabot-go/cmd/anketabot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
