// Package modscript implements the decision port by spawning the external
// moderation scripts: argv in, one JSON document on stdout, non-zero exit
// means failure. The scripts own all classification and learning logic.
package modscript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Strob0t/GroupWarden/internal/config"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/decision"
)

// killGrace is how long a process gets to die after its deadline before
// the wait is abandoned.
const killGrace = 2 * time.Second

// Client runs the decision scripts as subprocesses.
type Client struct {
	cfg config.Decision
}

// New creates a script-backed decision client.
func New(cfg config.Decision) *Client {
	return &Client{cfg: cfg}
}

// Classify invokes the classifier script once with the message identity and
// content as arguments. The process is killed when cfg.Timeout elapses.
func (c *Client) Classify(ctx context.Context, msg moderation.IncomingMessage) (moderation.Verdict, error) {
	stdout, err := c.run(ctx, c.cfg.ClassifyScript, msg.ID, msg.SenderID, msg.Content)
	if err != nil {
		return moderation.Verdict{}, err
	}

	var v moderation.Verdict
	if err := json.Unmarshal(stdout, &v); err != nil {
		return moderation.Verdict{}, fmt.Errorf("%w: %s", decision.ErrParseFailure, firstLine(stdout))
	}
	if v.Classification == "" {
		return moderation.Verdict{}, fmt.Errorf("%w: missing classification", decision.ErrParseFailure)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return moderation.Verdict{}, fmt.Errorf("%w: confidence %v out of range", decision.ErrParseFailure, v.Confidence)
	}
	// Unknown action strings pass through: the coordinator fails them safe
	// to review rather than rejecting the verdict here.
	return v, nil
}

// SubmitFeedback forwards an admin judgment to the learning script.
// The script receives the original message id and the reaction emoji
// (or the kind name when the kind has no emoji form).
func (c *Client) SubmitFeedback(ctx context.Context, messageID string, kind review.FeedbackKind) error {
	arg := kind.Emoji()
	if arg == "" {
		arg = string(kind)
	}
	if _, err := c.run(ctx, c.cfg.FeedbackScript, messageID, arg); err != nil {
		return err
	}
	return nil
}

// DailyStats invokes the stats script and parses its JSON output.
func (c *Client) DailyStats(ctx context.Context) (report.Stats, error) {
	stdout, err := c.run(ctx, c.cfg.StatsScript)
	if err != nil {
		return report.Stats{}, err
	}

	var stats report.Stats
	if err := json.Unmarshal(stdout, &stats); err != nil {
		return report.Stats{}, fmt.Errorf("%w: %s", decision.ErrParseFailure, firstLine(stdout))
	}
	return stats, nil
}

// run executes one script under the configured deadline and returns its
// stdout. Exactly one invocation; no retries.
func (c *Client) run(ctx context.Context, script string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	argv := append([]string{script}, args...)
	cmd := exec.CommandContext(runCtx, c.cfg.Interpreter, argv...) //nolint:gosec // G204: interpreter and script come from trusted config
	cmd.Dir = c.cfg.WorkDir
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			slog.Warn("decision process killed on deadline",
				"script", script, "timeout", c.cfg.Timeout)
			return nil, fmt.Errorf("%w: %s after %s", decision.ErrTimeout, script, c.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %s: %s: %v",
			decision.ErrProcessFailure, script, strings.TrimSpace(stderr.String()), err)
	}

	slog.Debug("decision process finished",
		"script", script, "duration_ms", time.Since(start).Milliseconds())
	return stdout.Bytes(), nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return moderation.Truncate(s, 120)
}
