package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"volatbot/internal/models"
)

// Ledger хранит открытые позиции и историю закрытых в двух JSON файлах.
// Все последовательности load-modify-save проходят через один мьютекс:
// пересекающиеся циклы покупки и монитора не теряют записи друг друга.
// Сохранение атомарное: запись во временный файл и rename поверх.
type Ledger struct {
	mu         sync.Mutex
	openPath   string
	closedPath string
}

func New(dir string) *Ledger {
	return &Ledger{
		openPath:   filepath.Join(dir, "positions.json"),
		closedPath: filepath.Join(dir, "history.json"),
	}
}

// Open возвращает копию множества открытых позиций.
func (l *Ledger) Open() ([]models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadOpen()
}

// History возвращает историю закрытых позиций в порядке добавления.
func (l *Ledger) History() ([]models.ClosedPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var closed []models.ClosedPosition
	if err := l.loadFile(l.closedPath, &closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// Update применяет fn к открытым позициям под замком и сохраняет
// результат. Ошибка fn отменяет сохранение целиком.
func (l *Ledger) Update(fn func(open []models.Position) ([]models.Position, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	open, err := l.loadOpen()
	if err != nil {
		return err
	}

	updated, err := fn(open)
	if err != nil {
		return err
	}

	return l.saveFile(l.openPath, updated)
}

// Append добавляет новую позицию. На символ допускается не более одной
// открытой позиции.
func (l *Ledger) Append(pos models.Position) error {
	return l.Update(func(open []models.Position) ([]models.Position, error) {
		for _, existing := range open {
			if existing.Symbol == pos.Symbol {
				return nil, models.Failf(models.KindLedgerConflict, pos.Symbol, "Позиция уже открыта: id=%s", existing.EntryOrderID)
			}
		}
		return append(open, pos), nil
	})
}

// Replace перезаписывает позицию символа, не меняя остальных.
func (l *Ledger) Replace(pos models.Position) error {
	return l.Update(func(open []models.Position) ([]models.Position, error) {
		for i, existing := range open {
			if existing.Symbol == pos.Symbol {
				open[i] = pos
				return open, nil
			}
		}
		return nil, models.Failf(models.KindLedgerConflict, pos.Symbol, "Позиция не найдена для обновления.")
	})
}

// Close атомарно переносит позицию из открытых в историю: удаление и
// добавление происходят под одним замком, промежуточное состояние
// наружу не видно.
func (l *Ledger) Close(closed models.ClosedPosition) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	open, err := l.loadOpen()
	if err != nil {
		return err
	}

	found := false
	remaining := open[:0]
	for _, pos := range open {
		if pos.Symbol == closed.Symbol && !found {
			found = true
			continue
		}
		remaining = append(remaining, pos)
	}
	if !found {
		return models.Failf(models.KindLedgerConflict, closed.Symbol, "Позиция уже закрыта другим циклом.")
	}

	var history []models.ClosedPosition
	if err := l.loadFile(l.closedPath, &history); err != nil {
		return err
	}
	history = append(history, closed)

	if err := l.saveFile(l.closedPath, history); err != nil {
		return err
	}
	return l.saveFile(l.openPath, remaining)
}

func (l *Ledger) loadOpen() ([]models.Position, error) {
	var open []models.Position
	if err := l.loadFile(l.openPath, &open); err != nil {
		return nil, err
	}
	return open, nil
}

// loadFile терпимо относится к отсутствующему или пустому файлу:
// первый запуск начинается с пустого множества.
func (l *Ledger) loadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось прочитать %s: %w", path, err))
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось разобрать %s: %w", path, err))
	}
	return nil
}

func (l *Ledger) saveFile(path string, data any) error {
	payload, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось подготовить %s: %w", path, err))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось создать каталог %s: %w", filepath.Dir(path), err))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось записать %s: %w", tmp, err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return models.NewFailure(models.KindLedgerIO, "", fmt.Errorf("Не удалось заменить %s: %w", path, err))
	}
	return nil
}
