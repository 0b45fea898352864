package service

import (
	"context"
	"encoding/json"
	"fmt"
	"microcourse_backend/internal/config"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"microcourse_backend/pkg/monitoring"
	"microcourse_backend/pkg/tracing"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// CourseGenerator 外部 AI 生成服务的契约
type CourseGenerator interface {
	GenerateCourse(ctx context.Context, params GenerateParams) (*CourseDraft, error)
	ImproveModule(ctx context.Context, contentHTML, feedback string) (*ModuleImprovement, error)
	RegenerateQuiz(ctx context.Context, contentHTML, difficulty string) ([]QuestionDraft, error)
}

type GenerateParams struct {
	Content     string
	ModuleCount string
	Difficulty  string
	PassScore   int
}

// CourseDraft 生成器返回的课程草稿
type CourseDraft struct {
	Title            string        `json:"title" validate:"required"`
	EstimatedMinutes int           `json:"estimatedMinutes" validate:"gte=0"`
	Modules          []ModuleDraft `json:"modules" validate:"required,min=1,dive"`
}

type ModuleDraft struct {
	Title              string          `json:"title" validate:"required"`
	ContentHTML        string          `json:"contentHtml" validate:"required"`
	LearningObjectives []string        `json:"learningObjectives" validate:"required,min=1,dive,required"`
	Questions          []QuestionDraft `json:"questions" validate:"required,min=1,dive"`
}

type QuestionDraft struct {
	StemHTML      string   `json:"stemHtml" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectIndex  *int     `json:"correctIndex" validate:"required,gte=0"`
	RationaleHTML string   `json:"rationaleHtml"`
}

// answer 缺少 correctIndex 时返回错误，不能默认成 0
func (q QuestionDraft) answer() (int, error) {
	if q.CorrectIndex == nil {
		return 0, fmt.Errorf("correctIndex is required")
	}
	return *q.CorrectIndex, nil
}

type ModuleImprovement struct {
	ContentHTML        string   `json:"contentHtml" validate:"required"`
	LearningObjectives []string `json:"learningObjectives" validate:"required,min=1,dive,required"`
}

type quizDraft struct {
	Questions []QuestionDraft `json:"questions" validate:"required,min=1,dive"`
}

// GenerationError 上游生成失败，errors.Is(err, util.ErrGenerationFailed) 为真
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == util.ErrGenerationFailed
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	ResponseFormat responseFormat  `json:"response_format"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AIService 通过 chat-completions 兼容接口生成课程内容
type AIService struct {
	mu       sync.RWMutex
	config   config.AIConfig
	client   *resty.Client
	validate *validator.Validate
}

func NewAIService(cfg config.AIConfig) *AIService {
	s := &AIService{validate: validator.New()}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 热更新模型、密钥和超时
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	s.mu.Lock()
	s.config = cfg
	s.client = client
	s.mu.Unlock()
}

func (s *AIService) snapshot() (config.AIConfig, *resty.Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.client
}

func courseSystemPrompt(p GenerateParams) string {
	return fmt.Sprintf(`You are an expert instructional designer. Create concise, safety-aware micro-learning courses from business SOPs. Use plain language and active voice. Focus on practical, actionable content that learners can immediately apply.

Your task is to convert the provided SOP into a structured micro-course with modules, learning objectives, content, and assessment questions.

Guidelines:
- Create %s modules based on logical content divisions
- Each module should take 3-5 minutes to complete
- Write content at %s level
- Include 3-5 multiple choice questions per module
- Ensure questions test comprehension and application
- Pass score is %d%%

Respond with valid JSON in this exact format:
{
  "title": "Course title based on SOP content",
  "estimatedMinutes": 15,
  "modules": [
    {
      "title": "Module title",
      "contentHtml": "<p>HTML formatted content explaining key concepts...</p>",
      "learningObjectives": ["Objective 1", "Objective 2", "Objective 3"],
      "questions": [
        {
          "stemHtml": "<p>Question text here?</p>",
          "options": ["Option A", "Option B", "Option C", "Option D"],
          "correctIndex": 1,
          "rationaleHtml": "<p>Explanation of why this is correct...</p>"
        }
      ]
    }
  ]
}`, moduleCountHint(p.ModuleCount), p.Difficulty, p.PassScore)
}

func moduleCountHint(mc string) string {
	if mc == "auto" {
		return "an appropriate number of (typically 3-7)"
	}
	return mc
}

func (s *AIService) GenerateCourse(ctx context.Context, params GenerateParams) (*CourseDraft, error) {
	messages := []AIChatMessage{
		{Role: "system", Content: courseSystemPrompt(params)},
		{Role: "user", Content: "Convert this SOP into a micro-course:\n\n" + params.Content},
	}

	var draft CourseDraft
	if err := s.complete(ctx, "course", "generate course", messages, true, &draft); err != nil {
		return nil, err
	}
	if err := s.checkDraft(&draft); err != nil {
		return nil, &GenerationError{Op: "generate course", Err: err}
	}
	return &draft, nil
}

func (s *AIService) ImproveModule(ctx context.Context, contentHTML, feedback string) (*ModuleImprovement, error) {
	var b strings.Builder
	b.WriteString("Improve this training module content based on feedback. Keep it concise (3-5 minutes reading time) and practical.\n\n")
	b.WriteString("Current content: " + contentHTML + "\n")
	if feedback != "" {
		b.WriteString("Feedback: " + feedback + "\n")
	}
	b.WriteString(`
Respond with JSON:
{
  "contentHtml": "<p>Improved HTML content...</p>",
  "learningObjectives": ["Objective 1", "Objective 2", "Objective 3"]
}`)

	var out ModuleImprovement
	if err := s.complete(ctx, "improve", "improve module", []AIChatMessage{{Role: "user", Content: b.String()}}, false, &out); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&out); err != nil {
		return nil, &GenerationError{Op: "improve module", Err: err}
	}
	return &out, nil
}

func (s *AIService) RegenerateQuiz(ctx context.Context, contentHTML, difficulty string) ([]QuestionDraft, error) {
	prompt := fmt.Sprintf(`Generate 3-5 multiple choice questions for this training module content. Focus on practical application and comprehension.

Module content: %s
Difficulty: %s

Each question should have 4 options with only one correct answer. Include clear explanations.

Respond with JSON:
{
  "questions": [
    {
      "stemHtml": "<p>Question text?</p>",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctIndex": 1,
      "rationaleHtml": "<p>Explanation...</p>"
    }
  ]
}`, contentHTML, difficulty)

	var out quizDraft
	if err := s.complete(ctx, "quiz", "regenerate quiz", []AIChatMessage{{Role: "user", Content: prompt}}, false, &out); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&out); err != nil {
		return nil, &GenerationError{Op: "regenerate quiz", Err: err}
	}
	if err := checkCorrectIndexes(out.Questions); err != nil {
		return nil, &GenerationError{Op: "regenerate quiz", Err: err}
	}
	return out.Questions, nil
}

func (s *AIService) checkDraft(draft *CourseDraft) error {
	if err := s.validate.Struct(draft); err != nil {
		return err
	}
	for i, m := range draft.Modules {
		if err := checkCorrectIndexes(m.Questions); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}
	return nil
}

func checkCorrectIndexes(questions []QuestionDraft) error {
	for i, q := range questions {
		correct, err := q.answer()
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if correct < 0 || correct >= len(q.Options) {
			return fmt.Errorf("question %d: correctIndex %d out of range for %d options", i, correct, len(q.Options))
		}
	}
	return nil
}

// complete 发送一次 chat-completions 请求并把返回的 JSON 内容解析到 out
func (s *AIService) complete(ctx context.Context, metric, op string, messages []AIChatMessage, withMaxTokens bool, out interface{}) error {
	cfg, client := s.snapshot()

	ctx, span := tracing.Tracer.Start(ctx, "ai."+metric)
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", cfg.Model))

	start := time.Now()
	err := s.doComplete(ctx, cfg, client, messages, withMaxTokens, out)
	monitoring.GenerationDuration.WithLabelValues(metric).Observe(time.Since(start).Seconds())

	if err != nil {
		monitoring.GenerationCounter.WithLabelValues(metric, "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Log.Warn("AI generation failed",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &GenerationError{Op: op, Err: err}
	}

	monitoring.GenerationCounter.WithLabelValues(metric, "success").Inc()
	logger.Log.Info("AI generation completed", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *AIService) doComplete(ctx context.Context, cfg config.AIConfig, client *resty.Client, messages []AIChatMessage, withMaxTokens bool, out interface{}) error {
	reqBody := ChatCompletionRequest{
		Model:          cfg.Model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    cfg.Temperature,
	}
	if withMaxTokens {
		reqBody.MaxTokens = cfg.MaxTokens
	}

	resp, err := client.R().
		SetContext(ctx).
		SetBody(reqBody).
		Post("/chat/completions")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("AI API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("decode AI response: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return fmt.Errorf("no content generated")
	}

	content := stripCodeFence(result.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("invalid JSON in AI content: %w", err)
	}
	return nil
}

// stripCodeFence 去掉模型偶尔包裹的 ```json 代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
