package dto

// ExportRequest renders a stored version into a downloadable artifact.
type ExportRequest struct {
	VersionID string `json:"versionId" validate:"required"`
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
	// View selects the grid orientation: class grids or the teacher inversion.
	View string `json:"view" validate:"omitempty,oneof=class teacher"`
}

// ExportResponse points at the rendered artifact.
type ExportResponse struct {
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
	SizeBytes int    `json:"sizeBytes"`
}
