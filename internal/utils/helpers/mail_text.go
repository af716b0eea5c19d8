package helpers

import (
	"fmt"
	"strings"
)

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "путешественник"
}

func BuildWelcomeText(name, url string) string {
	return fmt.Sprintf(`Привет, %s!

Добро пожаловать в Natours. Заполните профиль, чтобы мы подбирали туры под вас:
%s

Письмо сгенерировано автоматически. Не отвечайте на него.
`, firstName(name), url)
}

func BuildPasswordResetText(name, url, validFor string) string {
	return fmt.Sprintf(`Привет, %s!

Забыли пароль? Отправьте PATCH-запрос с новым паролем и подтверждением на адрес:
%s

Ссылка действует %s. Если вы не запрашивали сброс, просто проигнорируйте это письмо.

Письмо сгенерировано автоматически. Не отвечайте на него.
`, firstName(name), url, validFor)
}
