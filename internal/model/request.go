package model

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ProfileFields struct {
	Department    string `json:"department"`
	Phone         string `json:"phone"`
	EmployeeID    string `json:"employee_id"`
	Designation   string `json:"designation"`
	StudentNumber string `json:"student_number"`
	YearLevel     int    `json:"year_level"`
	Section       string `json:"section"`
}

type CreateUserRequest struct {
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Role      string        `json:"role"`
	Status    string        `json:"status"`
	Profile   ProfileFields `json:"profile"`
}

type UpdateUserRequest struct {
	Email     *string        `json:"email"`
	Password  *string        `json:"password"`
	FirstName *string        `json:"first_name"`
	LastName  *string        `json:"last_name"`
	Profile   *ProfileFields `json:"profile"`
}

type UserQuery struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

type UserListData struct {
	Users []User `json:"users"`
}

type BulkActionRequest struct {
	Action string  `json:"action"`
	IDs    []int64 `json:"ids"`
}

type BulkActionFailure struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type BulkActionResult struct {
	Succeeded []int64             `json:"succeeded"`
	Failed    []BulkActionFailure `json:"failed"`
}
