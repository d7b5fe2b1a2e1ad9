package dtos

type ApplicationCreationRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Title       string `json:"role_title" binding:"required"`

	// Optional Fields
	JobLink     string `json:"job_link"`
	Description string `json:"description"`
	ResumeLink  string `json:"resume_link"`
	Status      string `json:"status"` // Defaults to "to_apply" if empty
}
