package auth

import "errors"

// Ошибки операций аутентификации. Сравниваются через errors.Is.
// Детали внутренних сбоев пишутся в лог и наружу не передаются.
var (
	// ErrValidationFailed - некорректный ввод; оборачивает *validation.FieldError
	ErrValidationFailed = errors.New("validation failed")
	// ErrAccountExists - username или email уже заняты
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials - неизвестный пользователь или неверный пароль (не различаются)
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOTP - код не совпал с текущим или соседним окном
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrUserNotFound - пользователь для проверки OTP не найден
	ErrUserNotFound = errors.New("user not found")
	// ErrDeliveryFailed - код не удалось отправить
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrHashingFailed - сбой bcrypt
	ErrHashingFailed = errors.New("password hashing failed")
	// ErrSecretUnavailable - не удалось сгенерировать или прочитать OTP секрет
	ErrSecretUnavailable = errors.New("otp secret unavailable")
	// ErrTokenIssuanceFailed - не удалось подписать токен
	ErrTokenIssuanceFailed = errors.New("token issuance failed")
	// ErrStoreUnavailable - хранилище недоступно
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrProviderExchangeFailed - внешний провайдер отклонил code или не вернул подтвержденный email
	ErrProviderExchangeFailed = errors.New("identity provider exchange failed")
	// ErrIdentityNotLinked - для email провайдера нет аккаунта, а автосоздание выключено
	ErrIdentityNotLinked = errors.New("identity not linked")
)
