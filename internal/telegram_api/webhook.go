package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// WebhookManager управляет вебхуком и метаданными бота: один настраиваемый
// компонент вместо набора одноразовых скриптов на каждый случай.
// WebhookManager manages the bot webhook and metadata: one configurable
// component instead of one-off setup scripts.
type WebhookManager struct {
	client         *BotClient
	url            string
	allowedUpdates []string
}

// NewWebhookManager создает менеджер вебхука для заданного URL и списка
// допустимых типов обновлений.
func NewWebhookManager(client *BotClient, url string, allowedUpdates []string) *WebhookManager {
	return &WebhookManager{
		client:         client,
		url:            url,
		allowedUpdates: allowedUpdates,
	}
}

// Set устанавливает вебхук.
func (wm *WebhookManager) Set() error {
	wh, err := tgbotapi.NewWebhook(wm.url)
	if err != nil {
		return fmt.Errorf("ошибка создания конфигурации вебхука: %w", err)
	}
	wh.AllowedUpdates = wm.allowedUpdates
	if _, err := wm.client.Request(wh); err != nil {
		return fmt.Errorf("ошибка установки вебхука: %w", err)
	}
	log.Printf("Вебхук установлен: %s (обновления: %v)", wm.url, wm.allowedUpdates)
	return nil
}

// Delete снимает вебхук (нужно перед переходом на long polling).
func (wm *WebhookManager) Delete(dropPending bool) error {
	cfg := tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}
	if _, err := wm.client.Request(cfg); err != nil {
		return fmt.Errorf("ошибка удаления вебхука: %w", err)
	}
	log.Println("Вебхук удален.")
	return nil
}

// Info возвращает текущее состояние вебхука.
func (wm *WebhookManager) Info() (tgbotapi.WebhookInfo, error) {
	info, err := wm.client.GetAPI().GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, fmt.Errorf("ошибка запроса состояния вебхука: %w", err)
	}
	return info, nil
}

// Verify проверяет, что установленный вебхук указывает на ожидаемый URL.
// Verify checks that the installed webhook points at the expected URL.
func (wm *WebhookManager) Verify() error {
	info, err := wm.Info()
	if err != nil {
		return err
	}
	if info.URL != wm.url {
		return fmt.Errorf("вебхук указывает на '%s', ожидался '%s'", info.URL, wm.url)
	}
	if info.LastErrorMessage != "" {
		log.Printf("Вебхук сообщает о последней ошибке доставки: %s", info.LastErrorMessage)
	}
	return nil
}

// ApplyBotMetadata выставляет команды и описание бота.
// ApplyBotMetadata sets the bot commands and description.
func ApplyBotMetadata(client *BotClient) {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Регистрация и профиль"},
		tgbotapi.BotCommand{Command: "help", Description: "Как пользоваться ботом"},
	)
	if _, err := client.Request(commands); err != nil {
		log.Printf("ApplyBotMetadata: ошибка установки команд бота: %v", err)
	}

	description := tgbotapi.SetMyDescriptionConfig{
		Description: "Бот уведомлений о рейсах: получайте детали рейса и подтверждайте участие одной кнопкой.",
	}
	if _, err := client.Request(description); err != nil {
		log.Printf("ApplyBotMetadata: ошибка установки описания бота: %v", err)
	}
}
