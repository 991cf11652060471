package logging

import (
	"fmt"
	"sort"
	"sync"
)

// LoggerManager раздаёт логгеры компонентов (engine, network, storage...)
// и применяет к ним общий уровень и режим файлового вывода.
type LoggerManager struct {
	mu         sync.RWMutex
	loggers    map[string]*Logger
	fileOutput bool
	level      LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
			level:   INFO,
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger := NewConsoleLogger(component)
	if lm.fileOutput {
		fl, err := NewLogger(component)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
		}
		logger = fl
	}
	logger.minConsoleLevel = lm.level
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер; если файл не открылся, пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		fallback := NewConsoleLogger(component)
		fallback.minConsoleLevel = lm.currentLevel()
		return fallback
	}
	return logger
}

func (lm *LoggerManager) currentLevel() LogLevel {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.level
}

// Configure задаёт консольный уровень всем компонентам (и созданным позже)
// и включает файловые логи для компонентов, созданных после вызова.
// Вызывается из main до запуска движка.
func (lm *LoggerManager) Configure(level LogLevel, fileOutput bool) {
	lm.mu.Lock()
	lm.level = level
	lm.fileOutput = fileOutput
	loggers := make([]*Logger, 0, len(lm.loggers))
	for _, l := range lm.loggers {
		loggers = append(loggers, l)
	}
	lm.mu.Unlock()

	for _, l := range loggers {
		l.mu.Lock()
		l.minConsoleLevel = level
		l.mu.Unlock()
	}
	SetDefaultLevel(level)
}

// CloseAll закрывает файлы всех логгеров компонентов
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// Components имена компонентов с созданными логгерами, по алфавиту
func (lm *LoggerManager) Components() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetNetworkLogger() *Logger { return GetComponentLogger("network") }

func GetEngineLogger() *Logger { return GetComponentLogger("engine") }

func GetStorageLogger() *Logger { return GetComponentLogger("storage") }
