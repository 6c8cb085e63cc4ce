package service

import (
	"errors"
	"strconv"

	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/metrics"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// 252 = 36*7，拒绝采样保证均匀分布
	codeSampleLimit = 252

	DefaultVoucherCodeLength  = 12
	DefaultGiftCardCodeLength = 16
	DefaultCodeMaxAttempts    = 1000

	claimBatchMaxRetries = 5
)

// CodeChecker 码值占用检查（券码与礼品卡共用同一命名空间）
type CodeChecker interface {
	Exists(code string) (bool, error)
}

// BatchCodeChecker 可批量检查的 CodeChecker
type BatchCodeChecker interface {
	CodeChecker
	ExistingCodes(codes []string) ([]string, error)
}

// CodeCheckerFunc 函数形式的 CodeChecker
type CodeCheckerFunc func(code string) (bool, error)

// Exists 实现 CodeChecker
func (f CodeCheckerFunc) Exists(code string) (bool, error) {
	return f(code)
}

// CodeGenerator 优惠码生成器
type CodeGenerator struct {
	maxAttempts int
	random      func() [16]byte
}

// NewCodeGenerator 创建生成器，maxAttempts <= 0 时使用默认上限
func NewCodeGenerator(maxAttempts int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeMaxAttempts
	}
	return &CodeGenerator{
		maxAttempts: maxAttempts,
		random: func() [16]byte {
			return uuid.New()
		},
	}
}

// Generate 生成一个未被占用的码值
func (g *CodeGenerator) Generate(checker CodeChecker, length int) (string, error) {
	if length <= 0 {
		length = DefaultVoucherCodeLength
	}
	label := strconv.Itoa(length)
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		metrics.CodeGenerateAttempts.WithLabelValues(label).Inc()
		candidate := g.draw(length)
		if checker == nil {
			return candidate, nil
		}
		exists, err := checker.Exists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	metrics.CodeGenerateExhausted.WithLabelValues(label).Inc()
	logger.Errorw("code_generate_exhausted", "length", length, "max_attempts", g.maxAttempts)
	return "", ErrCodeGenerateExhausted
}

// GenerateBatch 生成 count 个互不相同且未被占用的码值
func (g *CodeGenerator) GenerateBatch(checker BatchCodeChecker, length, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	if length <= 0 {
		length = DefaultVoucherCodeLength
	}
	label := strconv.Itoa(length)
	result := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		missing := count - len(result)
		candidates := make([]string, 0, missing)
		for len(candidates) < missing {
			metrics.CodeGenerateAttempts.WithLabelValues(label).Inc()
			candidate := g.draw(length)
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			candidates = append(candidates, candidate)
		}
		taken := map[string]struct{}{}
		if checker != nil {
			existing, err := checker.ExistingCodes(candidates)
			if err != nil {
				return nil, err
			}
			for _, code := range existing {
				taken[code] = struct{}{}
			}
		}
		for _, candidate := range candidates {
			if _, ok := taken[candidate]; !ok {
				result = append(result, candidate)
			}
		}
		if len(result) == count {
			return result, nil
		}
	}
	metrics.CodeGenerateExhausted.WithLabelValues(label).Inc()
	logger.Errorw("code_generate_batch_exhausted", "length", length, "count", count, "max_attempts", g.maxAttempts)
	return nil, ErrCodeGenerateExhausted
}

func (g *CodeGenerator) draw(length int) string {
	buf := make([]byte, 0, length)
	for len(buf) < length {
		raw := g.random()
		for idx, b := range raw {
			// 第 6、8 字节含 UUID 版本与变体位，不参与采样
			if idx == 6 || idx == 8 {
				continue
			}
			if b >= codeSampleLimit {
				continue
			}
			buf = append(buf, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(buf) == length {
				break
			}
		}
	}
	return string(buf)
}

// claimWithRetry 在保存点内执行写入；唯一索引冲突时回滚保存点并重新生成。
// write 每次调用都应重新生成码值。
func claimWithRetry(tx *gorm.DB, namespace string, write func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= claimBatchMaxRetries; attempt++ {
		err := tx.Transaction(func(sp *gorm.DB) error {
			return write(sp)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeTaken) && !repository.IsUniqueViolation(err) {
			return err
		}
		lastErr = err
		metrics.CodeClaimCollisions.WithLabelValues(namespace).Inc()
		logger.Warnw("promo_code_claim_retry", "namespace", namespace, "attempt", attempt, "error", err)
	}
	logger.Errorw("promo_code_claim_exhausted", "namespace", namespace, "error", lastErr)
	return ErrCodeGenerateExhausted
}
