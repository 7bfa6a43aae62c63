// paycal-plan runs the whole pipeline once over a fixture file and prints
// the result as JSON. Useful for inspecting plans without a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"paycal/internal/calendar"
	"paycal/internal/core"
	"paycal/internal/explain"
	"paycal/internal/ingest"
	"paycal/internal/normalize"
)

type output struct {
	Summary     ingest.Summary     `json:"summary"`
	Payload     *core.Payload      `json:"payload,omitempty"`
	Plan        *core.CalendarPlan `json:"plan"`
	Explanation []string           `json:"explanation"`
}

func main() {
	_ = godotenv.Load()

	fixturePath := flag.String("fixture", os.Getenv("FIXTURE_PATH"), "path to a transactions-sync JSON fixture")
	focusParam := flag.String("focus", "", "optimization focus: overdraft, utilization or balanced (default: auto)")
	showPayload := flag.Bool("payload", false, "include the normalized payload in the output")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "paycal-plan: no fixture given (use -fixture or FIXTURE_PATH)")
		os.Exit(2)
	}

	batch, err := ingest.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paycal-plan: %v\n", err)
		os.Exit(1)
	}

	payload := normalize.Normalize(batch)

	focus := calendar.PickFocus(payload)
	if *focusParam != "" {
		focus = core.ParseFocus(*focusParam)
	}

	plan := calendar.Optimize(payload, focus)

	bullets, err := explain.NewTemplate().Explain(context.Background(), payload, plan, focus)
	if err != nil {
		bullets = plan.Explain
	}

	out := output{
		Summary:     ingest.Summarize(batch),
		Plan:        plan,
		Explanation: bullets,
	}
	if *showPayload {
		out.Payload = payload
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "paycal-plan: encode output: %v\n", err)
		os.Exit(1)
	}
}
