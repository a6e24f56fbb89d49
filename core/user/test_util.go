package user

import (
	"github.com/sgescola/sge/core"
)

// serviceMock is the real service with asynchronous side effects made
// synchronous so tests can assert on sent emails.
type serviceMock struct {
	service
}

func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	svc := &serviceMock{}
	svc.repo = repo
	svc.mailSvc = mailSvc
	return svc
}

func (svc *serviceMock) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr) // inline, no goroutine
	return nil
}
