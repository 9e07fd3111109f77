package cmd

import (
	"github.com/mkowalczk/jobscout/internal/email"
)

type EmailCmd struct {
	Test EmailTestCmd `cmd:"" help:"Send a test message to verify SMTP settings."`
}

type EmailTestCmd struct {
	To string `arg:"" optional:"" help:"Recipient address (defaults to the admin email)."`
}

func (e *EmailTestCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	sender := email.NewSender(email.Settings{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.EmailFrom,
		AdminEmail: cfg.AdminEmail,
	}, ctx.Logger)

	if err := sender.SendTest(e.To); err != nil {
		return err
	}
	ctx.UI.Successf("test message sent")
	return nil
}
