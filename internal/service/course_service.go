package service

import (
	"context"
	"fmt"
	"microcourse_backend/internal/config"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	ModuleCount35   = "3-5"
	ModuleCount57   = "5-7"
	ModuleCountAuto = "auto"

	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// GenerateCourseInput 生成课程的请求参数，FileData 非空时表示文件上传。
// PassScore 为 nil 时使用默认值，显式传入的值必须在合法范围内。
type GenerateCourseInput struct {
	Title       string
	Content     string
	ModuleCount string
	Difficulty  string
	PassScore   *int
	FileName    string
	FileData    []byte
}

type CourseUpdate struct {
	Title     *string
	Status    *model.CourseStatus
	PassScore *int
}

type CourseService struct {
	Store          *repository.Store
	Generator      CourseGenerator
	StorageService *StorageService
	Cfg            config.CourseConfig
	now            func() time.Time
}

func NewCourseService(store *repository.Store, generator CourseGenerator, storage *StorageService, cfg config.CourseConfig) *CourseService {
	return &CourseService{
		Store:          store,
		Generator:      generator,
		StorageService: storage,
		Cfg:            cfg,
		now:            time.Now,
	}
}

func (s *CourseService) normalize(in *GenerateCourseInput) {
	in.Title = strings.TrimSpace(in.Title)
	if in.ModuleCount == "" {
		in.ModuleCount = ModuleCount35
	}
	if in.Difficulty == "" {
		in.Difficulty = DifficultyIntermediate
	}
	if in.PassScore == nil {
		score := s.Cfg.DefaultPassScore
		if score == 0 {
			score = model.DefaultPassScore
		}
		in.PassScore = &score
	}
}

func validateGenerateInput(in *GenerateCourseInput) error {
	verr := &util.ValidationError{}
	if utf8.RuneCountInString(strings.TrimSpace(in.Content)) < util.MinSOPLength {
		verr.Add("content", fmt.Sprintf("SOP content must be at least %d characters", util.MinSOPLength))
	}
	switch in.ModuleCount {
	case ModuleCount35, ModuleCount57, ModuleCountAuto:
	default:
		verr.Add("moduleCount", "moduleCount must be one of 3-5, 5-7, auto")
	}
	switch in.Difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
	default:
		verr.Add("difficulty", "difficulty must be one of beginner, intermediate, advanced")
	}
	if in.PassScore == nil {
		verr.Add("passScore", "passScore is required")
	} else if err := validatePassScore(*in.PassScore); err != nil {
		verr.Add("passScore", err.Error())
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func validatePassScore(score int) error {
	if score < model.MinPassScore || score > model.MaxPassScore {
		return fmt.Errorf("passScore must be between %d and %d", model.MinPassScore, model.MaxPassScore)
	}
	return nil
}

// Generate 校验 → 记录 Upload → 调用生成器 → 组装入库 → 标记 Upload 已处理
func (s *CourseService) Generate(ctx context.Context, actor Actor, in GenerateCourseInput) (*model.Course, error) {
	if !actor.IsManager() {
		return nil, util.ErrPermissionDenied
	}
	if actor.OrgID == "" {
		return nil, util.ErrNoOrganization
	}

	s.normalize(&in)
	if err := validateGenerateInput(&in); err != nil {
		return nil, err
	}

	upload := &model.Upload{
		OrgID:   actor.OrgID,
		Source:  model.UploadSourcePaste,
		Content: in.Content,
	}
	if len(in.FileData) > 0 {
		upload.Source = model.UploadSourceFile
		upload.ObjectURL = s.archiveSOP(ctx, actor.OrgID, in.FileName, in.FileData)
	}
	if err := s.Store.Uploads.Create(upload); err != nil {
		return nil, err
	}

	logger.Log.Info("Generating course",
		zap.String("org_id", actor.OrgID),
		zap.String("upload_id", upload.ID),
		zap.String("module_count", in.ModuleCount),
		zap.String("difficulty", in.Difficulty))

	draft, err := s.Generator.GenerateCourse(ctx, GenerateParams{
		Content:     in.Content,
		ModuleCount: in.ModuleCount,
		Difficulty:  in.Difficulty,
		PassScore:   *in.PassScore,
	})
	if err != nil {
		s.markUploadFailed(upload, err)
		return nil, err
	}
	if in.Title != "" {
		draft.Title = in.Title
	}

	course, err := s.AssembleCourse(draft, actor.OrgID, actor.UserID, *in.PassScore)
	if err != nil {
		s.markUploadFailed(upload, err)
		return nil, err
	}

	upload.Processed = true
	upload.Error = nil
	if err := s.Store.Uploads.Update(upload); err != nil {
		logger.Log.Error("Failed to mark upload processed", zap.String("upload_id", upload.ID), zap.Error(err))
	}

	logger.Log.Info("Course generated",
		zap.String("course_id", course.ID),
		zap.Int("modules", len(course.Modules)))
	return course, nil
}

func (s *CourseService) archiveSOP(ctx context.Context, orgID, filename string, data []byte) string {
	if s.StorageService == nil {
		return ""
	}
	name := fmt.Sprintf("sops/%s/%s%s", orgID, model.GenerateUUID(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.StorageService.Archive(ctx, name, data, "text/plain; charset=utf-8")
	if err != nil {
		logger.Log.Warn("Failed to archive SOP file", zap.String("file", filename), zap.Error(err))
		return ""
	}
	return url
}

func (s *CourseService) markUploadFailed(upload *model.Upload, cause error) {
	msg := cause.Error()
	upload.Error = &msg
	if err := s.Store.Uploads.Update(upload); err != nil {
		logger.Log.Error("Failed to annotate upload", zap.String("upload_id", upload.ID), zap.Error(err))
	}
}

// BuildCourse 把草稿完整地构建为内存中的课程树并校验，不做任何写入
func BuildCourse(draft *CourseDraft, orgID, createdBy string, passScore int) (*model.Course, error) {
	verr := &util.ValidationError{}
	if strings.TrimSpace(draft.Title) == "" {
		verr.Add("title", "title is required")
	}
	if err := validatePassScore(passScore); err != nil {
		verr.Add("passScore", err.Error())
	}
	if len(draft.Modules) == 0 {
		verr.Add("modules", "at least one module is required")
	}

	course := &model.Course{
		UUIDBase:  model.UUIDBase{ID: model.GenerateUUID()},
		OrgID:     orgID,
		Title:     draft.Title,
		Status:    model.CourseDraft,
		PassScore: passScore,
		CreatedBy: createdBy,
	}
	if draft.EstimatedMinutes > 0 {
		mins := draft.EstimatedMinutes
		course.EstMinutes = &mins
	}

	for i, md := range draft.Modules {
		field := fmt.Sprintf("modules[%d]", i)
		if strings.TrimSpace(md.Title) == "" {
			verr.Add(field+".title", "title is required")
		}
		if len(md.LearningObjectives) == 0 {
			verr.Add(field+".learningObjectives", "at least one learning objective is required")
		}

		module := model.Module{
			UUIDBase:           model.UUIDBase{ID: model.GenerateUUID()},
			CourseID:           course.ID,
			Index:              i,
			Title:              md.Title,
			ContentHTML:        md.ContentHTML,
			LearningObjectives: append([]string(nil), md.LearningObjectives...),
		}
		for j, qd := range md.Questions {
			correct, err := qd.answer()
			if err == nil {
				err = validateQuestionShape(qd.Options, correct)
			}
			if err != nil {
				verr.Add(fmt.Sprintf("%s.questions[%d]", field, j), err.Error())
			}
			module.Questions = append(module.Questions, model.Question{
				UUIDBase:      model.UUIDBase{ID: model.GenerateUUID()},
				ModuleID:      module.ID,
				Index:         j,
				StemHTML:      qd.StemHTML,
				Options:       append([]string(nil), qd.Options...),
				CorrectIndex:  correct,
				RationaleHTML: qd.RationaleHTML,
			})
		}
		course.Modules = append(course.Modules, module)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return course, nil
}

func validateQuestionShape(options []string, correctIndex int) error {
	if len(options) < 2 {
		return fmt.Errorf("at least two options are required")
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return fmt.Errorf("correctIndex %d out of range for %d options", correctIndex, len(options))
	}
	return nil
}

// AssembleCourse 先构建完整课程树，再一次性写入存储
func (s *CourseService) AssembleCourse(draft *CourseDraft, orgID, createdBy string, passScore int) (*model.Course, error) {
	course, err := BuildCourse(draft, orgID, createdBy, passScore)
	if err != nil {
		return nil, err
	}
	now := s.now()
	course.CreatedAt = now
	for i := range course.Modules {
		course.Modules[i].CreatedAt = now
		for j := range course.Modules[i].Questions {
			course.Modules[i].Questions[j].CreatedAt = now
		}
	}
	if err := s.Store.Courses.CreateWithContent(course); err != nil {
		return nil, fmt.Errorf("assemble course: %w", err)
	}
	return course, nil
}

func (s *CourseService) ListCourses(actor Actor) ([]model.Course, error) {
	if actor.OrgID == "" {
		return nil, util.ErrNoOrganization
	}
	courses, err := s.Store.Courses.FindByOrg(actor.OrgID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// GetCourse 返回课程及按顺序排列的模块和题目
func (s *CourseService) GetCourse(actor Actor, courseID string) (*model.Course, error) {
	course, err := s.Store.Courses.FindByID(courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccessCourse(course) {
		return nil, util.ErrPermissionDenied
	}
	if err := s.loadContent(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) loadContent(course *model.Course) error {
	modules, err := s.Store.Modules.FindByCourse(course.ID)
	if err != nil {
		return err
	}
	for i := range modules {
		questions, err := s.Store.Questions.FindByModule(modules[i].ID)
		if err != nil {
			return err
		}
		modules[i].Questions = questions
	}
	course.Modules = modules
	return nil
}

// manageableCourse 加载课程并确认 actor 可以修改它
func (s *CourseService) manageableCourse(actor Actor, courseID string) (*model.Course, error) {
	course, err := s.Store.Courses.FindByID(courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canManageCourse(course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(actor Actor, courseID string, upd CourseUpdate) (*model.Course, error) {
	course, err := s.manageableCourse(actor, courseID)
	if err != nil {
		return nil, err
	}

	verr := &util.ValidationError{}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			verr.Add("title", "title must not be empty")
		}
		course.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.PassScore != nil {
		if err := validatePassScore(*upd.PassScore); err != nil {
			verr.Add("passScore", err.Error())
		}
		course.PassScore = *upd.PassScore
	}
	if upd.Status != nil {
		switch *upd.Status {
		case model.CoursePublished:
			if course.Status != model.CoursePublished {
				now := s.now()
				course.PublishedAt = &now
			}
		case model.CourseDraft:
			course.PublishedAt = nil
		default:
			verr.Add("status", "status must be draft or published")
		}
		course.Status = *upd.Status
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.Store.Courses.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(actor Actor, courseID string) error {
	if _, err := s.manageableCourse(actor, courseID); err != nil {
		return err
	}
	if err := s.Store.Courses.Delete(courseID); err != nil {
		return err
	}
	logger.Log.Info("Course deleted", zap.String("course_id", courseID), zap.String("by", actor.UserID))
	return nil
}
