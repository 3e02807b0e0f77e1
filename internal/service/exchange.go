package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"CodeDrop/internal/model"
	"CodeDrop/internal/repo"

	"go.uber.org/zap"
)

// Предел повторов при занятом коде. Пространство кодов — 900 000 значений;
// упереться в предел можно только при почти полном его исчерпании,
// и тогда честный ErrInternal лучше бесконечного цикла.
const maxCodeAttempts = 100

// Limits — внешняя политика загрузки файлов, приходит из конфигурации.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
}

// FileUpload — один загружаемый файл, уже прочитанный транспортным слоем.
type FileUpload struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// CreateResult — результат создания записи обмена.
type CreateResult struct {
	Code      string
	ItemCount int
}

// ItemInfo — метаданные одного элемента в проекции записи.
// Data заполняется только для нефайловых элементов: содержимое файла
// отдаётся исключительно через Consume.
type ItemInfo struct {
	Index     int
	IsFile    bool
	FileName  string
	MediaType string
	ByteSize  int64
	Consumed  bool
	Data      json.RawMessage
}

// ExchangeInfo — проекция записи обмена для Verify и Get.
type ExchangeInfo struct {
	Code       string
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
	Items      []ItemInfo
}

// Envelope — конверт выдачи нефайлового элемента.
type Envelope struct {
	Code      string          `json:"code"`
	ItemIndex int             `json:"item_index"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payload — результат потребления элемента: либо байты файла с атрибутами,
// либо конверт со структурными данными. Заполнена ровно одна половина.
type Payload struct {
	IsFile    bool
	FileName  string
	MediaType string
	ByteSize  int64
	Bytes     []byte
	Envelope  *Envelope
}

// ExchangeService инкапсулирует бизнес-логику обмена: выпуск кода,
// верификацию, одноразовую выдачу элементов и удаление записи.
type ExchangeService struct {
	repo   repo.ExchangeRepository
	gen    *CodeGenerator
	limits Limits
	logger *zap.SugaredLogger
}

// NewExchangeService создаёт сервис поверх репозитория.
func NewExchangeService(r repo.ExchangeRepository, gen *CodeGenerator, limits Limits, logger *zap.SugaredLogger) *ExchangeService {
	return &ExchangeService{repo: r, gen: gen, limits: limits, logger: logger}
}

// CreateFromData создаёт запись из непустого списка JSON-значений.
// Каждое значение становится одним нефайловым элементом.
func (s *ExchangeService) CreateFromData(ctx context.Context, values []json.RawMessage) (CreateResult, error) {
	if len(values) == 0 {
		return CreateResult{}, fmt.Errorf("%w: no data provided", ErrValidation)
	}

	items := make([]model.Item, 0, len(values))
	for i, v := range values {
		items = append(items, model.Item{Position: i, IsFile: false, Data: v})
	}
	return s.createWithUniqueCode(ctx, items)
}

// CreateFromFiles создаёт запись из 1..MaxFiles файлов.
// Любой файл сверх потолка размера отклоняет весь запрос: запись не создаётся.
func (s *ExchangeService) CreateFromFiles(ctx context.Context, files []FileUpload) (CreateResult, error) {
	if len(files) == 0 {
		return CreateResult{}, fmt.Errorf("%w: no files provided", ErrValidation)
	}
	if len(files) > s.limits.MaxFiles {
		return CreateResult{}, fmt.Errorf("%w: too many files (%d, max %d)", ErrValidation, len(files), s.limits.MaxFiles)
	}
	for _, f := range files {
		if f.Size > s.limits.MaxFileBytes {
			return CreateResult{}, fmt.Errorf("%w: file %q is %d bytes (max %d)", ErrPayloadTooLarge, f.Name, f.Size, s.limits.MaxFileBytes)
		}
	}

	items := make([]model.Item, 0, len(files))
	for i, f := range files {
		items = append(items, model.Item{
			Position:  i,
			IsFile:    true,
			Blob:      f.Data,
			FileName:  f.Name,
			MediaType: f.MediaType,
			ByteSize:  f.Size,
		})
	}
	return s.createWithUniqueCode(ctx, items)
}

// createWithUniqueCode — единственное место выпуска кода.
// Гонка двух конкурентных созданий с одинаковым кодом разрешается
// уникальным ключом хранилища: проигравший получает ErrCodeTaken
// и пробует следующий код.
func (s *ExchangeService) createWithUniqueCode(ctx context.Context, items []model.Item) (CreateResult, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.gen.Generate()
		ex := &model.Exchange{Code: code, Items: items}
		err := s.repo.Create(ctx, ex)
		if errors.Is(err, repo.ErrCodeTaken) {
			s.logger.Infow("code taken, retrying", "code", code, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return CreateResult{}, fmt.Errorf("%w: create exchange: %v", ErrInternal, err)
		}
		return CreateResult{Code: code, ItemCount: len(items)}, nil
	}
	return CreateResult{}, fmt.Errorf("%w: could not allocate a free code after %d attempts", ErrInternal, maxCodeAttempts)
}

// Verify помечает запись как верифицированную и возвращает метаданные элементов.
// Повторная верификация идемпотентна: флаг уже true, перезаписывается только
// verified_at.
func (s *ExchangeService) Verify(ctx context.Context, code string) (ExchangeInfo, error) {
	code = normalizeCode(code)
	ex, err := s.fetch(ctx, code)
	if err != nil {
		return ExchangeInfo{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkVerified(ctx, code, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ExchangeInfo{}, fmt.Errorf("%w: code %s", ErrNotFound, code)
		}
		return ExchangeInfo{}, fmt.Errorf("%w: mark verified: %v", ErrInternal, err)
	}

	ex.Verified = true
	ex.VerifiedAt = &now
	return projectExchange(ex), nil
}

// Get возвращает ту же проекцию, что и Verify, но без побочного эффекта.
// Нужен для идемпотентного опроса состояния записи.
func (s *ExchangeService) Get(ctx context.Context, code string) (ExchangeInfo, error) {
	ex, err := s.fetch(ctx, normalizeCode(code))
	if err != nil {
		return ExchangeInfo{}, err
	}
	return projectExchange(ex), nil
}

// Consume — одноразовая выдача элемента. Переход unconsumed→consumed делается
// одним условным обновлением в хранилище: из N конкурентных вызовов полезную
// нагрузку получает ровно один, остальные — ErrAlreadyConsumed.
func (s *ExchangeService) Consume(ctx context.Context, code string, index int) (Payload, error) {
	code = normalizeCode(code)
	ex, err := s.fetch(ctx, code)
	if err != nil {
		return Payload{}, err
	}
	if index < 0 || index >= len(ex.Items) {
		return Payload{}, fmt.Errorf("%w: item %d", ErrNotFound, index)
	}

	item := ex.Items[index]
	if item.Consumed {
		return Payload{}, fmt.Errorf("%w: item %d of %s", ErrAlreadyConsumed, index, code)
	}

	won, err := s.repo.ConsumeItem(ctx, code, index, time.Now().UTC())
	if err != nil {
		return Payload{}, fmt.Errorf("%w: consume item: %v", ErrInternal, err)
	}
	if !won {
		// Условное обновление не нашло строку с consumed=false:
		// конкурент успел раньше.
		return Payload{}, fmt.Errorf("%w: item %d of %s", ErrAlreadyConsumed, index, code)
	}

	if item.IsFile {
		return Payload{
			IsFile:    true,
			FileName:  item.FileName,
			MediaType: item.MediaType,
			ByteSize:  item.ByteSize,
			Bytes:     item.Blob,
		}, nil
	}
	return Payload{
		Envelope: &Envelope{
			Code:      code,
			ItemIndex: index,
			Data:      item.Data,
			CreatedAt: ex.CreatedAt,
		},
	}, nil
}

// Delete полностью удаляет запись и её элементы. Удаление несуществующего
// кода — ошибка, а не тихий успех.
func (s *ExchangeService) Delete(ctx context.Context, code string) error {
	code = normalizeCode(code)
	err := s.repo.DeleteByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: code %s", ErrNotFound, code)
	}
	if err != nil {
		return fmt.Errorf("%w: delete exchange: %v", ErrInternal, err)
	}
	return nil
}

func (s *ExchangeService) fetch(ctx context.Context, code string) (*model.Exchange, error) {
	ex, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: code %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get exchange: %v", ErrInternal, err)
	}
	return ex, nil
}

// normalizeCode приводит код к верхнему регистру. Для числовых кодов это
// no-op, но ввод не обязан быть числовым — оставлено для совместимости.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// projectExchange строит проекцию записи: файловые элементы — только
// метаданные, нефайловые — вместе со значением.
func projectExchange(ex *model.Exchange) ExchangeInfo {
	items := make([]ItemInfo, 0, len(ex.Items))
	for _, it := range ex.Items {
		info := ItemInfo{
			Index:    it.Position,
			IsFile:   it.IsFile,
			Consumed: it.Consumed,
		}
		if it.IsFile {
			info.FileName = it.FileName
			info.MediaType = it.MediaType
			info.ByteSize = it.ByteSize
		} else {
			info.Data = it.Data
		}
		items = append(items, info)
	}
	return ExchangeInfo{
		Code:       ex.Code,
		Verified:   ex.Verified,
		VerifiedAt: ex.VerifiedAt,
		CreatedAt:  ex.CreatedAt,
		Items:      items,
	}
}
