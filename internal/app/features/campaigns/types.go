// internal/app/features/campaigns/types.go
package campaigns

import (
	"html/template"

	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/formutil"
	"github.com/dalemusser/planhub/internal/app/system/teamutil"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// campaignInput carries the create/edit form fields through structural
// validation. Numeric and date parsing happens in the handlers; the
// tags cover only what the rules engine understands.
type campaignInput struct {
	Title       string `validate:"required,max=100" label:"Title"`
	Description string `validate:"max=2000" label:"Description"`
	AssignedTo  string `validate:"objectid" label:"Assignee"`
	TeamID      string `validate:"max=60" label:"Team"`
	DueDate     string `validate:"max=30" label:"Due date"`
	Budget      string `validate:"max=20" label:"Budget"`
	Tags        string `validate:"max=300" label:"Tags"`
	Channel     string `validate:"max=60" label:"Channel"`
}

type listItem struct {
	ID       primitive.ObjectID
	Title    string
	Status   string
	Assignee string
	Team     string
	DueDate  string
	Budget   string
}

type listData struct {
	viewdata.BaseVM

	Q      string
	Status string
	Team   string

	Items    []listItem
	Teams    []teamutil.TeamOption
	Statuses []string

	Shown      int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
	RangeStart int
	RangeEnd   int
	PrevStart  int
	NextStart  int
}

type assigneeOption struct {
	ID   string
	Name string
}

// formData backs both the new and edit forms; ID is empty on create.
type formData struct {
	formutil.Base

	ID          string
	Title       string
	Description string
	AssignedTo  string
	TeamID      string
	DueDate     string
	Budget      string
	Tags        string
	Channel     string

	Assignees []assigneeOption
	Teams     []teamutil.TeamOption

	Activities []activityRow
}

type activityRow struct {
	Title   string
	Status  string
	Owner   string
	Start   string
	Due     string
	Channel string
	Period  string
}

type reviewInfo struct {
	ID         string
	Priority   string
	ReviewType string
	Since      string
}

type viewData struct {
	viewdata.BaseVM

	ID          string
	CTitle      string
	Description template.HTML
	Status      string
	Assignee    string
	Team        string
	DueDate     string
	Budget      string
	Tags        []string
	Channel     string
	CreatedBy   string
	CreatedAt   string
	UpdatedAt   string

	CanEdit    bool
	CanDelete  bool
	CanSubmit  bool
	CanPublish bool
	CanExport  bool
	Exportable bool

	Validation campaignval.Result
	Report     campaignval.Report

	PendingReview *reviewInfo

	PeriodOrder []string
	Periods     map[string][]activityRow

	Notice        string
	SubmitErrors  []string
	PublishErrors []string
	ExportErrors  []string
	InvalidUsers  []string
}
