package httpapi

// Response 与前端约定的统一响应格式 { success, data } / { success, error }
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Ok(data any) Response {
	return Response{Success: true, Data: data}
}

func Fail(message string) Response {
	return Response{Success: false, Error: message}
}
