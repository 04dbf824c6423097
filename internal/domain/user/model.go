package user

// User - учетная запись семьи. Password хранит bcrypt-хэш.
type User struct {
	Login    string
	Password string
}
