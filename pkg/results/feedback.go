package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FallbackFeedback is attached when the generator fails
const FallbackFeedback = "No race summary available this time. See you on track for the next one!"

// FeedbackGenerator turns a prompt into a short narrative text
type FeedbackGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FeedbackFunc adapts a function to a FeedbackGenerator
type FeedbackFunc func(ctx context.Context, prompt string) (string, error)

func (f FeedbackFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// BuildPrompt describes a race for the text generator
func BuildPrompt(race *Race) string {
	var b strings.Builder
	session := "race"
	if race.Qualifying {
		session = "race with qualifying"
	}
	fmt.Fprintf(&b, "Write a short, lively summary of a %d lap %s on track %q in %s weather.\n",
		race.Laps, session, race.TrackID, race.Weather)
	b.WriteString("Classification:\n")
	for _, e := range race.Entries {
		result := "did not finish"
		if e.Finished && e.FinishTime.Valid {
			result = e.FinishTime.Decimal.StringFixed(3) + "s"
		}
		fmt.Fprintf(&b, "%d. %s", e.Position, e.Nickname)
		if e.Team != "" {
			fmt.Fprintf(&b, " (%s)", e.Team)
		}
		fmt.Fprintf(&b, ": %s", result)
		if e.QualifyTime.Valid {
			fmt.Fprintf(&b, ", qualifying %ss", e.QualifyTime.Decimal.StringFixed(3))
		}
		fmt.Fprintf(&b, ", setup wings %g/%g suspension %g/%g tires %s\n",
			e.Setup.FrontWing, e.Setup.RearWing,
			e.Setup.FrontSuspension, e.Setup.RearSuspension, e.Setup.Tire)
	}
	b.WriteString("Mention the winner and one setup choice that made a difference.")
	return b.String()
}

var ErrEmptyFeedback = errors.New("generator returned no text")

// HTTPGenerator calls a text completion endpoint which accepts
// {"model","prompt"} and answers {"text"}.
type HTTPGenerator struct {
	url    string
	model  string
	token  string
	client *http.Client
}

type HTTPOption func(*HTTPGenerator)

func WithModel(model string) HTTPOption {
	return func(g *HTTPGenerator) { g.model = model }
}

func WithToken(token string) HTTPOption {
	return func(g *HTTPGenerator) { g.token = token }
}

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGenerator) { g.client = c }
}

func NewHTTPGenerator(url string, opts ...HTTPOption) *HTTPGenerator {
	g := &HTTPGenerator{url: url, client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type completionRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{Model: g.model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("feedback service returned %s: %s", resp.Status, msg)
	}
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrEmptyFeedback
	}
	return text, nil
}
