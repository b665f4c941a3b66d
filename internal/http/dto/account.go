package dto

type CreateAccountRequest struct {
	Handle      string `json:"handle" binding:"required"`
	DisplayName string `json:"display_name"`
}
