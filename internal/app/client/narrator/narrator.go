// Package narrator - тексты от языковой модели по воспоминаниям пары:
// подпись к воспоминанию, чат по воспоминаниям и вопрос викторины.
//
// Модель подключается через OpenAI-совместимый API. Любая ошибка модели
// заменяется запасным текстом, вызывающему она не возвращается.
package narrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"chronicles/internal/app/client/config"
	"chronicles/internal/domain/dataset"

	"github.com/go-playground/validator/v10"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/exp/slog"
)

const (
	FallbackNarrativeEmpty = "爱在细节中,但有时言语无法表达。"
	FallbackNarrative      = "这一刻胜过千言万语。"
	FallbackChatEmpty      = "我在回忆的长河中迷路了..."
	FallbackChat           = "我现在有点想不起来了。"

	quizSampleSize = 3
)

var ErrNoAPIKey = errors.New("AI API key is not configured")

// Turn - реплика в истории чата. Role: user или assistant.
type Turn struct {
	Role string
	Text string
}

// Quiz - вопрос викторины с четырьмя вариантами.
type Quiz struct {
	Question     string   `json:"question" validate:"required"`
	Options      []string `json:"options" validate:"len=4,dive,required"`
	CorrectIndex int      `json:"correctIndex" validate:"gte=0,lte=3"`
	Explanation  string   `json:"explanation" validate:"required"`
}

type Narrator struct {
	client   openai.Client
	model    string
	log      *slog.Logger
	validate *validator.Validate
	shuffle  func(n int, swap func(i, j int))
	enabled  bool
}

func New(cfg config.AI, log *slog.Logger) *Narrator {
	n := &Narrator{
		model:    cfg.Model,
		log:      log.With(slog.String("component", "narrator")),
		validate: validator.New(),
		shuffle:  rand.Shuffle,
		enabled:  cfg.APIKey != "",
	}
	if n.enabled {
		n.client = openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithMaxRetries(1),
		)
	}
	return n
}

func (n *Narrator) Enabled() bool {
	return n.enabled
}

// Narrate пишет короткую поэтичную подпись к воспоминанию.
func (n *Narrator) Narrate(ctx context.Context, m dataset.Memory) string {
	prompt := fmt.Sprintf(`扮演一位为情侣纪念册撰写文案的浪漫作家。
请用中文为标题为 "%s" 的回忆写一段简短、充满诗意且温馨的旁白（不超过2句话）。
上下文背景: %s.
地点: %s.
氛围: %s.
语气应该是亲密、怀旧且深情的。`, m.Title, m.Description, m.Location, m.Mood)

	text, err := n.complete(ctx, []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)}, 0.8, false)
	if err != nil {
		n.log.Warn("narrative generation failed", "memory_id", m.ID, "error", err)
		return FallbackNarrative
	}
	if text == "" {
		return FallbackNarrativeEmpty
	}
	return text
}

// Chat отвечает на вопрос, опираясь на все воспоминания как на контекст.
func (n *Narrator) Chat(ctx context.Context, memories []dataset.Memory, history []Turn, message string) string {
	var summary strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&summary, "- 在 %s 于 %s: %s (%s). 标签: %s\n",
			m.Date, m.Location, m.Title, m.Description, strings.Join(m.Tags, ", "))
	}

	system := fmt.Sprintf(`你是 "Chronos",这本情侣时光书的数字灵魂。
你拥有他们共同的历史记忆：
%s
请用温暖、中文的语气回答他们的问题。
如果问到数据中没有的事情,可以调皮地建议他们快去创造这个回忆。
回答请简洁（不超过3句话）,除非被要求讲故事。`, summary.String())

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range history {
		switch turn.Role {
		case "assistant", "model":
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	text, err := n.complete(ctx, messages, 0.7, false)
	if err != nil {
		n.log.Warn("chat failed", "error", err)
		return FallbackChat
	}
	if text == "" {
		return FallbackChatEmpty
	}
	return text
}

// Quiz составляет вопрос по трем случайным воспоминаниям.
// Ответ модели, не прошедший проверку формата, дает (nil, err).
func (n *Narrator) Quiz(ctx context.Context, memories []dataset.Memory) (*Quiz, error) {
	sample := append([]dataset.Memory(nil), memories...)
	n.shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	if len(sample) > quizSampleSize {
		sample = sample[:quizSampleSize]
	}
	raw, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("quiz context: %w", err)
	}

	prompt := fmt.Sprintf(`根据以下回忆内容创建一个有趣的中文多项选择题（Trivia）：%s。
问题应该测试关于地点、日期或具体细节的记忆。
提供4个选项,只有一个是正确的。
请以JSON格式返回,格式如下:
{
  "question": "问题内容",
  "options": ["选项1", "选项2", "选项3", "选项4"],
  "correctIndex": 0,
  "explanation": "答案解释"
}

注意: correctIndex 是 0-3 之间的整数,表示正确答案在 options 数组中的索引。`, raw)

	text, err := n.complete(ctx, []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)}, 0.7, true)
	if err != nil {
		return nil, fmt.Errorf("quiz: %w", err)
	}
	return n.parseQuiz(text)
}

func (n *Narrator) parseQuiz(text string) (*Quiz, error) {
	var q Quiz
	if err := json.Unmarshal([]byte(text), &q); err != nil {
		return nil, fmt.Errorf("quiz: malformed response: %w", err)
	}
	if err := n.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("quiz: invalid format: %w", err)
	}
	return &q, nil
}

func (n *Narrator) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64, jsonMode bool) (string, error) {
	if !n.enabled {
		return "", ErrNoAPIKey
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(n.model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := n.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
