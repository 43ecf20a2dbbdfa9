package telegram

import (
	"errors"
	"fmt"
	"strings"

	"magistrant/internal/charts"
	"magistrant/internal/curriculum"
	"magistrant/internal/scrapers/kpfu"
	"magistrant/internal/service"
)

const (
	textWelcome = "Привет! Я помогу получить учебный план из личного кабинета КФУ.\n\n" +
		"/plan - получить учебный план за семестр\n" +
		"/cancel - отменить текущее действие"
	textAskLogin        = "Введите логин от личного кабинета КФУ:"
	textAskPassword     = "Введите пароль:"
	textAskTerm         = "Введите номер семестра (от 1 до 4):"
	textInvalidTerm     = "Некорректный номер семестра. Введите число от 1 до 4."
	textCancelled       = "Действие отменено."
	textNothingToCancel = "Нечего отменять."
	textNoDialog        = "Чтобы получить учебный план, отправьте /plan."
	textWait            = "Получаю данные с сайта КФУ, это может занять до минуты..."
	textNoData          = "Нет данных для выбранного семестра."
	textUnknownCommand  = "Неизвестная команда. Доступные команды: /start, /plan, /cancel."
	textBusy            = "Сейчас обрабатывается слишком много запросов, попробуйте позже."

	textAuthFailure = "Не удалось войти в личный кабинет: проверьте логин и пароль."
	textTimeout     = "Сайт КФУ не ответил вовремя. Попробуйте позже."
	textNotFound    = "Не удалось найти таблицу учебного плана в личном кабинете."
	textFailure     = "Произошла ошибка при получении данных. Попробуйте позже."
)

func suggestCommand(command string) string {
	return fmt.Sprintf("Неизвестная команда. Возможно, вы имели в виду %s?", command)
}

// summary lists the records the way the plan is shown in the chat.
func summary(records []curriculum.Record, term int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Учебный план на %d семестр:\n", term)
	for _, r := range records {
		fmt.Fprintf(&b, "- %s — %s (%d ч.)\n", r.Name, r.Control, r.Hours)
	}
	stats, err := charts.Summarize(records)
	if err != nil {
		return b.String()
	}
	fmt.Fprintf(&b, "\nВсего: %d ч., в среднем %.1f ч. на дисциплину", stats.Total, stats.Mean)
	return b.String()
}

// failureText words an error of GetPlan for the user, a timeout is reported
// as such whatever step it happened in.
func failureText(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidTerm):
		return textInvalidTerm
	case errors.Is(err, kpfu.ErrTimeout):
		return textTimeout
	case errors.Is(err, kpfu.ErrAuthFailure):
		return textAuthFailure
	case errors.Is(err, kpfu.ErrNotFound):
		return textNotFound
	}
	return textFailure
}
