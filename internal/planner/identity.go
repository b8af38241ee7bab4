package planner

// Identity 登录后解析出的身份，会话期间不可变
type Identity struct {
	Email string
	Name  string
}
