package dto

// TeacherPayload creates or replaces a teacher roster entry.
type TeacherPayload struct {
	FullName         string   `json:"fullName" validate:"required,min=2,max=120"`
	Subjects         []string `json:"subjects" validate:"required,min=1,dive,min=1"`
	Sections         []string `json:"sections"`
	MaxPeriodsPerDay int      `json:"maxPeriodsPerDay" validate:"min=0,max=16"`
	Active           *bool    `json:"active"`
}

// ClassSubjectPayload is one demand row of a class.
type ClassSubjectPayload struct {
	Subject       string `json:"subject" validate:"required,min=1"`
	WeeklyPeriods int    `json:"weeklyPeriods" validate:"required,min=1,max=40"`
	TeacherID     string `json:"teacherId" validate:"required"`
}

// ClassPayload creates or replaces a class and its subject demands.
type ClassPayload struct {
	Name     string                `json:"name" validate:"required,min=1,max=40"`
	Subjects []ClassSubjectPayload `json:"subjects" validate:"required,min=1,dive"`
}

// SchoolConfigPayload replaces the school calendar shape.
type SchoolConfigPayload struct {
	Days         []string       `json:"days" validate:"required,min=1,max=7,dive,min=2"`
	PeriodsPerDay int           `json:"periodsPerDay" validate:"required,min=1,max=16"`
	BreakPeriods map[int]string `json:"breakPeriods"`
}

// PriorityPayload replaces the soft preferences of one class.
type PriorityPayload struct {
	PrioritySubjects []string `json:"prioritySubjects"`
	WeakSubjects     []string `json:"weakSubjects"`
	HeavySubjects    []string `json:"heavySubjects"`
}

// ListQuery carries the shared pagination and search parameters.
type ListQuery struct {
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"pageSize" json:"pageSize"`
	Search   string `form:"search" json:"search"`
	Active   *bool  `form:"active" json:"active"`
}
