package models

type CatalogPageResponse struct {
	Movies     []CatalogItem `json:"movies"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	ElapsedMS  float64       `json:"elapsed_ms"`
}
