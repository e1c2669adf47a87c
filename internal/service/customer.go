package service

import (
    "net/mail"
    "regexp"
    "strings"
)

// CustomerData is the contact information a guest submits with a booking
// request.
type CustomerData struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().\-]{5,19}$`)

// ValidateCustomer checks that name is present, that email is a bare
// address and that phone, when given, looks like a phone number.
func ValidateCustomer(d CustomerData) error {
    if strings.TrimSpace(d.Name) == "" {
        return Validation(CodeNameRequired, "name is required")
    }
    email := strings.TrimSpace(d.Email)
    if email == "" {
        return Validation(CodeInvalidEmail, "email is required")
    }
    addr, err := mail.ParseAddress(email)
    if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
        return Validation(CodeInvalidEmail, "email address is not valid")
    }
    if phone := strings.TrimSpace(d.Phone); phone != "" && !phonePattern.MatchString(phone) {
        return Validation(CodeInvalidPhone, "phone number is not valid")
    }
    return nil
}
