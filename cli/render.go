package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/catalog"
	"github.com/goliatone/go-integration/verify"
	"github.com/goliatone/go-integration/wizard"
)

var (
	statusSuccess = color.New(color.FgGreen).SprintFunc()
	statusError   = color.New(color.FgRed, color.Bold).SprintFunc()
	statusRunning = color.New(color.FgYellow).SprintFunc()
	statusPending = color.New(color.Faint).SprintFunc()
)

func statusLabel(s verify.Status) string {
	switch s {
	case verify.StatusSuccess:
		return statusSuccess(string(s))
	case verify.StatusError:
		return statusError(string(s))
	case verify.StatusRunning:
		return statusRunning(string(s))
	default:
		return statusPending(string(s))
	}
}

func renderStages(out io.Writer, stages []verify.StageState) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION\tMESSAGE")
	for _, st := range stages {
		msg := st.Message
		if st.Detail != "" {
			msg += " (" + st.Detail + ")"
		}
		dur := "-"
		if d := st.Duration(); d > 0 {
			dur = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Name, statusLabel(st.Status), dur, msg)
	}
	return tw.Flush()
}

func renderResult(out io.Writer, result *integration.TestResult) {
	if result == nil {
		fmt.Fprintln(out, "no result")
		return
	}
	if result.Success {
		count := 0
		if result.RecordCount != nil {
			count = *result.RecordCount
		}
		fmt.Fprintf(out, "%s: %d records available\n", statusSuccess("verified"), count)
		return
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "%s: %s\n", statusError("failed"), e)
	}
}

func renderFields(out io.Writer, c *catalog.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tNAME\tTYPE\tREQUIRED")
	for _, f := range c.Fields() {
		req := ""
		if f.Required {
			req = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.DisplayName, f.DataType, req)
	}
	return tw.Flush()
}

func renderTemplates(out io.Writer, c *catalog.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tNAME\tCONNECTOR\tMAPPINGS")
	for _, t := range c.Templates() {
		connector := t.Connector
		if connector == "" {
			connector = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.ID, t.DisplayName, connector, len(t.Mappings))
	}
	return tw.Flush()
}

func renderConnectors(out io.Writer, c *catalog.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONNECTOR\tNAME\tCATEGORY")
	for _, conn := range c.Connectors() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", conn.ID, conn.DisplayName, conn.Category)
	}
	return tw.Flush()
}

type completedSummary struct {
	SessionID      string                     `json:"session_id"`
	CompletedAt    time.Time                  `json:"completed_at"`
	CredentialKind integration.CredentialKind `json:"credential_kind"`
	Draft          *integration.Draft         `json:"draft"`
}

// writeCompleted prints the committed configuration with secrets masked.
func writeCompleted(out io.Writer, msg wizard.Completed) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(completedSummary{
		SessionID:      msg.SessionID,
		CompletedAt:    msg.CompletedAt,
		CredentialKind: msg.Draft.CredentialKind(),
		Draft:          msg.Draft.Redacted(),
	})
}
