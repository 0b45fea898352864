package service

import (
	"fmt"
	"math"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"
)

type QuizPhase string

const (
	PhaseContent QuizPhase = "content"
	PhaseQuiz    QuizPhase = "quiz"
	PhaseResults QuizPhase = "results"
)

// AttemptRecorder 提交答案时追加作答记录
type AttemptRecorder interface {
	RecordAttempt(attempt *model.Attempt) error
}

// BadgeAwarder 通过最后一个模块时颁发徽章
type BadgeAwarder interface {
	AwardCompletion(userID, courseID, courseTitle string) error
}

// QuizQuestion 开始测验时题目的快照
type QuizQuestion struct {
	ID            string   `json:"id"`
	StemHTML      string   `json:"stemHtml"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correctIndex"`
	RationaleHTML string   `json:"rationaleHtml"`
}

type QuestionState struct {
	Selected  *int `json:"selected"`
	Submitted bool `json:"submitted"`
}

// QuizSession 一个学习者在一个模块上的测验过程
type QuizSession struct {
	UserID        string          `json:"userId"`
	CourseID      string          `json:"courseId"`
	CourseTitle   string          `json:"courseTitle"`
	ModuleID      string          `json:"moduleId"`
	ModuleIndex   int             `json:"moduleIndex"`
	IsFinalModule bool            `json:"isFinalModule"`
	PassScore     int             `json:"passScore"`
	Phase         QuizPhase       `json:"phase"`
	Questions     []QuizQuestion  `json:"questions"`
	States        []QuestionState `json:"states"`
	Current       int             `json:"currentQuestionIndex"`
	CorrectCount  int             `json:"correctCount"`
	ShowFeedback  bool            `json:"showFeedback"`
	ScorePercent  int             `json:"scorePercent"`
	Passed        bool            `json:"passed"`
}

func NewQuizSession(userID string, course *model.Course, module *model.Module, questions []model.Question, moduleCount int) *QuizSession {
	qs := make([]QuizQuestion, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, QuizQuestion{
			ID:            q.ID,
			StemHTML:      q.StemHTML,
			Options:       append([]string(nil), q.Options...),
			CorrectIndex:  q.CorrectIndex,
			RationaleHTML: q.RationaleHTML,
		})
	}
	return &QuizSession{
		UserID:        userID,
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		ModuleID:      module.ID,
		ModuleIndex:   module.Index,
		IsFinalModule: module.Index == moduleCount-1,
		PassScore:     course.PassScore,
		Phase:         PhaseContent,
		Questions:     qs,
		States:        make([]QuestionState, len(qs)),
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// ScorePercent 四舍五入到整数
func ScorePercent(correct, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

func (s *QuizSession) reset() {
	s.Phase = PhaseQuiz
	s.States = make([]QuestionState, len(s.Questions))
	s.Current = 0
	s.CorrectCount = 0
	s.ShowFeedback = false
	s.ScorePercent = 0
	s.Passed = false
}

// Start 从内容页进入测验；没有题目的模块直接出结果
func (s *QuizSession) Start(awarder BadgeAwarder) error {
	if s.Phase != PhaseContent {
		return invalid("quiz can only be started from content, current phase is %s", s.Phase)
	}
	if len(s.Questions) == 0 {
		return s.finish(awarder)
	}
	s.reset()
	return nil
}

func (s *QuizSession) Select(option int) error {
	if s.Phase != PhaseQuiz {
		return invalid("no question is active")
	}
	st := &s.States[s.Current]
	if st.Submitted {
		return invalid("question %d is already submitted", s.Current)
	}
	if option < 0 || option >= len(s.Questions[s.Current].Options) {
		return util.NewValidationError("option", fmt.Sprintf("option must be between 0 and %d", len(s.Questions[s.Current].Options)-1))
	}
	st.Selected = &option
	return nil
}

// Submit 判分并追加一条 Attempt；记录失败时题目保持未提交
func (s *QuizSession) Submit(recorder AttemptRecorder) (*model.Attempt, error) {
	if s.Phase != PhaseQuiz {
		return nil, invalid("no question is active")
	}
	st := &s.States[s.Current]
	if st.Submitted {
		return nil, invalid("question %d is already submitted", s.Current)
	}
	if st.Selected == nil {
		return nil, invalid("select an option before submitting")
	}

	q := s.Questions[s.Current]
	attempt := &model.Attempt{
		UserID:        s.UserID,
		CourseID:      s.CourseID,
		ModuleID:      s.ModuleID,
		QuestionID:    q.ID,
		SelectedIndex: *st.Selected,
		IsCorrect:     *st.Selected == q.CorrectIndex,
	}
	if err := recorder.RecordAttempt(attempt); err != nil {
		return nil, err
	}

	st.Submitted = true
	if attempt.IsCorrect {
		s.CorrectCount++
	}
	s.ShowFeedback = true
	return attempt, nil
}

func (s *QuizSession) Next(awarder BadgeAwarder) error {
	if s.Phase != PhaseQuiz {
		return invalid("no question is active")
	}
	if !s.States[s.Current].Submitted {
		return invalid("submit question %d before moving on", s.Current)
	}
	if s.Current < len(s.Questions)-1 {
		s.Current++
		s.ShowFeedback = s.States[s.Current].Submitted
		return nil
	}
	return s.finish(awarder)
}

// finish 徽章颁发失败时不进入结果页，可重试 Next
func (s *QuizSession) finish(awarder BadgeAwarder) error {
	score := ScorePercent(s.CorrectCount, len(s.Questions))
	passed := score >= s.PassScore

	if passed && s.IsFinalModule {
		if err := awarder.AwardCompletion(s.UserID, s.CourseID, s.CourseTitle); err != nil {
			return err
		}
	}

	s.ScorePercent = score
	s.Passed = passed
	s.Phase = PhaseResults
	s.ShowFeedback = false
	return nil
}

func (s *QuizSession) Previous() error {
	if s.Phase != PhaseQuiz {
		return invalid("no question is active")
	}
	if s.Current == 0 {
		return invalid("already at the first question")
	}
	s.Current--
	s.ShowFeedback = s.States[s.Current].Submitted
	return nil
}

func (s *QuizSession) Retry() error {
	if s.Phase != PhaseResults {
		return invalid("retry is only available from results")
	}
	if s.Passed {
		return invalid("module already passed")
	}
	s.reset()
	return nil
}

// Complete 结束本次测验，返回是否通过
func (s *QuizSession) Complete() (bool, error) {
	if s.Phase != PhaseResults {
		return false, invalid("quiz is not finished")
	}
	return s.Passed, nil
}
