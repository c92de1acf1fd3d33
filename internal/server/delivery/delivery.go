// Package delivery отправляет одноразовые коды пользователю.
package delivery

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeliveryFailed возвращается, если код не удалось передать провайдеру
var ErrDeliveryFailed = errors.New("otp delivery failed")

// Sender доставляет код на email. Повторные попытки - забота вызывающей стороны
type Sender interface {
	SendCode(ctx context.Context, to, code string) error
}

// Message - письмо с кодом
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// NewCodeMessage формирует письмо с кодом подтверждения
func NewCodeMessage(to, code string) Message {
	return Message{
		To:       to,
		Subject:  "Your verification code",
		TextBody: fmt.Sprintf("Your verification code is %s. It is valid for about a minute.", code),
		HTMLBody: fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It is valid for about a minute.</p>", code),
	}
}
