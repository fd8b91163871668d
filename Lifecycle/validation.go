package Lifecycle

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"Workforce/Models"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// NewTask is the input for creating a task.
type NewTask struct {
	Title      string     `json:"title" validate:"required,max=255"`
	Objective  string     `json:"objective" validate:"max=10000"`
	Content    string     `json:"content" validate:"max=10000"`
	AssigneeID uint       `json:"assignee_id" validate:"required"`
	LeaderID   uint       `json:"leader_id"`
	Deadline   *time.Time `json:"deadline"`
	Weight     *float64   `json:"weight" validate:"omitempty,gte=0,lte=1"`
}

// ReportInput is a daily progress report. AttachmentPath may hold several
// paths separated by '|'.
type ReportInput struct {
	TaskID         uint   `json:"task_id" validate:"required"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Result         string `json:"result" validate:"min=10,max=20000"`
	AttachmentPath string `json:"attachment_path" validate:"max=2048"`
}

// CompletionInput is what the assignee hands over for review. All fields are
// optional.
type CompletionInput struct {
	Note     string `json:"note" validate:"max=20000"`
	Link     string `json:"link" validate:"max=1024"`
	FilePath string `json:"file_path" validate:"max=1024"`
}

type ApproveInput struct {
	Quality *float64 `json:"quality" validate:"omitempty,gte=0,lte=1"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// TaskPatch is an administrative edit. Nil fields are left unchanged.
type TaskPatch struct {
	Title         *string            `json:"title" validate:"omitempty,min=1,max=255"`
	Objective     *string            `json:"objective" validate:"omitempty,max=10000"`
	Content       *string            `json:"content" validate:"omitempty,max=10000"`
	Deadline      *time.Time         `json:"deadline"`
	ClearDeadline bool               `json:"clear_deadline"`
	Weight        *float64           `json:"weight" validate:"omitempty,gte=0,lte=1"`
	Status        *Models.TaskStatus `json:"status" validate:"omitempty,oneof=new accepted pending_approval completed paused"`
	Quality       *float64           `json:"quality" validate:"omitempty,gte=0,lte=1"`
	ClearQuality  bool               `json:"clear_quality"`
}

// validateInput runs the struct tags and turns failures into a
// ValidationError keyed by json field name.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newValidationError("input", err.Error())
	}
	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = fe.Translate(translator)
	}
	return verr
}

// Validate checks any tagged input struct the same way the lifecycle
// operations do. HTTP handlers use it for inputs that never reach a
// lifecycle operation.
func Validate(input any) error {
	return validateInput(input)
}
