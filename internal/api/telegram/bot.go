package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"wound-measure/internal/container"
	"wound-measure/internal/domain/entity"
	"wound-measure/internal/infrastructure/vision"
)

const (
	msgStart = `👋 Привет! Я измеряю площадь раны по фотографии.

📸 Отправьте /measure, затем фото раны вместе с круглой калибровочной наклейкой.

📋 Команды:
/measure — начать измерение
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Наклейте калибровочную наклейку рядом с раной
2️⃣ Отправьте /measure
3️⃣ Сфотографируйте сверху, чтобы рана и наклейка были в кадре
4️⃣ Отправьте фото (можно файлом JPG или PNG)

💡 Рекомендации:
• Снимайте при хорошем освещении
• Держите камеру параллельно коже
• Наклейка не должна быть закрыта или смята`

	msgAwaitingPhoto   = "📸 Отправьте фото раны с наклейкой."
	msgCancelled       = "❌ Операция отменена. Отправьте /measure для нового измерения."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото раны с калибровочной наклейкой."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Измеряю..."
	msgMeasureFirst    = "📋 Сначала отправьте /measure, затем фото раны с наклейкой."
	msgNoSticker       = "⚠️ Не удалось найти калибровочную наклейку. Сделайте фото так, чтобы наклейка была хорошо видна."
	msgBadImage        = "⚠️ Не удалось прочитать изображение. Отправьте фото в формате JPG или PNG."
	msgProcessingError = "⚠️ Сервис распознавания недоступен. Попробуйте позже."
)

// Bot представляет Telegram-бота
type Bot struct {
	api    *tgbotapi.BotAPI
	app    *container.Container
	logger *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, app *container.Container, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:    api,
		app:    app,
		logger: logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// У постов каналов нет отправителя
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.app.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get user", zap.Error(err))
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if fileID, filename, ok := imageFile(msg); ok {
		// Фото принимается только после /measure
		if !user.AwaitsPhoto() {
			b.sendMessage(msg.Chat.ID, msgMeasureFirst)
			return
		}
		b.handleImage(ctx, msg, user, fileID, filename)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	var (
		text string
		err  error
	)

	switch msg.Command() {
	case "start":
		_, err = b.app.UserService.Cancel(ctx, user.ID, user.ChatID)
		text = msgStart
	case "help":
		text = msgHelp
	case "measure":
		_, err = b.app.UserService.BeginMeasure(ctx, user.ID, user.ChatID)
		text = msgAwaitingPhoto
	case "cancel":
		_, err = b.app.UserService.Cancel(ctx, user.ID, user.ChatID)
		text = msgCancelled
	default:
		text = msgUnknownCommand
	}

	if err != nil {
		b.logger.Error("update user state", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	b.sendMessage(msg.Chat.ID, text)
}

// handleImage скачивает изображение и измеряет рану
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID, filename string) {
	log := b.logger.With(zap.Int64("user_id", user.ID))
	if _, err := b.app.UserService.StartProcessing(ctx, user.ID, user.ChatID); err != nil {
		log.Error("update user state", zap.Error(err))
	}
	defer func() {
		if _, err := b.app.UserService.Cancel(ctx, user.ID, user.ChatID); err != nil {
			log.Error("update user state", zap.Error(err))
		}
	}()

	b.sendMessage(msg.Chat.ID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Error("download photo", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	result, err := b.app.MeasurementService.Measure(ctx, entity.Upload{Filename: filename, Data: imageData})
	if err != nil {
		log.Info("measurement failed", zap.Error(err))
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}

	b.sendMessage(msg.Chat.ID, FormatResult(result))
}

// imageFile возвращает файл изображения из сообщения: фото или документ JPG/PNG
func imageFile(msg *tgbotapi.Message) (fileID, filename string, ok bool) {
	if len(msg.Photo) > 0 {
		// Берём фото с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		return photo.FileID, photo.FileUniqueID + ".jpg", true
	}
	if msg.Document != nil && vision.AllowedFile(msg.Document.FileName) {
		return msg.Document.FileID, msg.Document.FileName, true
	}
	return "", "", false
}

// FormatResult текст ответа с площадями
func FormatResult(r *entity.CalibrationResult) string {
	var sb strings.Builder
	sb.WriteString("📏 Результат измерения\n\n")
	fmt.Fprintf(&sb, "Рана: %.2f мм² (%.2f пикс²)\n", r.TargetAreaMm2, r.TargetAreaPixels)
	fmt.Fprintf(&sb, "Наклейка: %.2f мм² (%.2f пикс²)\n", r.ReferenceAreaMm2, r.ReferenceAreaPixels)
	fmt.Fprintf(&sb, "Масштаб: %.2f пикс/мм", r.ScaleFactor)
	return sb.String()
}

// errorText текст для пользователя по ошибке измерения
func errorText(err error) string {
	switch {
	case errors.Is(err, entity.ErrNoReferenceDetected), errors.Is(err, entity.ErrScaleFactorInvalid):
		return msgNoSticker
	case errors.Is(err, entity.ErrInvalidImage), errors.Is(err, entity.ErrUnsupportedFormat):
		return msgBadImage
	default:
		return msgProcessingError
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
