package handlers

// Swagger-only response shapes. Handlers return pkg/response generics,
// which swag cannot expand, so the docs reference these instead.

type RespOK struct {
	Code    int    `json:"code" example:"0"`
	Message string `json:"message" example:"ok"`
	Data    any    `json:"data"`
}

type RespError struct {
	Code    int    `json:"code" example:"50000"`
	Message string `json:"message" example:"unexpected error"`
	Data    string `json:"data"`
}
