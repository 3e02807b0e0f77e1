package service

import (
	"fmt"
	"math/rand"
)

// Диапазон кодов: всегда ровно 6 цифр, без ведущего нуля.
const (
	codeMin = 100000
	codeMax = 999999
)

// CodeGenerator выдаёт случайные 6-значные числовые коды.
// Уникальность кода генератор не гарантирует: её обеспечивает
// уникальный ключ в хранилище плюс повтор при ErrCodeTaken (см. exchange.go).
type CodeGenerator struct{}

// NewCodeGenerator создаёт генератор кодов.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate возвращает равномерно случайный код из [100000, 999999].
func (g *CodeGenerator) Generate() string {
	return fmt.Sprintf("%d", codeMin+rand.Intn(codeMax-codeMin+1))
}
