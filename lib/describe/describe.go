package describe

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/sashabaranov/go-openai"

	"github.com/icco/catalog/models"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Describer drafts movie descriptions with a chat completion model.
type Describer struct {
	client *openai.Client
	model  string
	system string
	movie  *template.Template
	logger *slog.Logger
}

// New builds a Describer. baseURL may be empty to use the public API.
func New(apiKey, baseURL string, logger *slog.Logger) (*Describer, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	system, err := promptFS.ReadFile("prompts/system.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to read system prompt: %w", err)
	}
	movie, err := template.New("movie.txt").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/movie.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse movie prompt: %w", err)
	}

	return &Describer{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
		system: strings.TrimSpace(string(system)),
		movie:  movie,
		logger: logger,
	}, nil
}

type promptData struct {
	Title        string
	OriginalName string
	ReleaseYear  int
	Type         models.MovieType
	Director     string
	Genres       []string
	Countries    []string
	Cast         []string
	Current      string
}

// Prompt renders the user prompt for a movie.
func (d *Describer) Prompt(detail models.MovieDetail) (string, error) {
	m := detail.Movie
	data := promptData{
		Title:        m.Title,
		OriginalName: m.OriginalName,
		ReleaseYear:  m.ReleaseYear,
		Type:         m.Type,
		Director:     m.Director,
		Current:      m.Description,
	}
	if data.OriginalName == data.Title {
		data.OriginalName = ""
	}
	for _, g := range m.Genres {
		data.Genres = append(data.Genres, g.Name)
	}
	for _, c := range m.Countries {
		data.Countries = append(data.Countries, c.Name)
	}
	for _, c := range detail.Cast {
		data.Cast = append(data.Cast, c.Actor.Name)
	}

	var b strings.Builder
	if err := d.movie.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render movie prompt: %w", err)
	}
	return b.String(), nil
}

// Describe drafts a description for a movie. The draft is returned, not
// stored.
func (d *Describer) Describe(ctx context.Context, detail models.MovieDetail) (string, error) {
	prompt, err := d.Prompt(detail)
	if err != nil {
		return "", err
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: d.system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get OpenAI completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	d.logger.InfoContext(ctx, "Drafted description",
		slog.Int64("movie_id", detail.Movie.ID),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))
	return text, nil
}
