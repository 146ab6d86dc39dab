// Package shortcode генерирует кандидатов коротких кодов.
//
// Генератор не обращается к хранилищу и не гарантирует уникальность:
// её обеспечивает уникальный индекс в БД. Задача генератора — лишь
// сделать коллизии редкими, поэтому криптографическая стойкость
// не требуется и используется обычный PRNG.
package shortcode

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// Charset содержит все символы, используемые в коротких кодах
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength — длина генерируемого короткого кода
	CodeLength = 6
)

// Generator выдаёт случайные коды фиксированной длины.
// Безопасен для конкурентного использования: единственное общее
// состояние — PRNG под мьютексом.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator создаёт генератор с независимо засеянным источником.
func NewGenerator() *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededGenerator создаёт генератор с заданным зерном (для тестов).
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Generate возвращает код длиной CodeLength, символы которого выбраны
// равномерно из Charset.
func (g *Generator) Generate() string {
	b := make([]byte, CodeLength)
	g.mu.Lock()
	for i := range b {
		b[i] = Charset[g.rnd.Intn(len(Charset))]
	}
	g.mu.Unlock()
	return string(b)
}
