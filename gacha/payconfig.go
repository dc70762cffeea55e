package gacha

import (
	"fmt"

	"github.com/bitfsorg/libgacha-go/identity"
)

// PaymentConfig prices a pull in one payment method.
type PaymentConfig struct {
	Method    MethodID    `json:"method"`
	Price     uint64      `json:"price"`
	Recipient identity.ID `json:"recipient"`
}

// PaymentConfigs returns the configured methods in table order.
func (p *Pool) PaymentConfigs() []PaymentConfig {
	out := make([]PaymentConfig, p.configCount)
	copy(out, p.configs[:p.configCount])
	return out
}

// PaymentConfig returns the config for method.
func (p *Pool) PaymentConfig(method MethodID) (PaymentConfig, error) {
	if i := p.findConfig(method); i >= 0 {
		return p.configs[i], nil
	}
	return PaymentConfig{}, fmt.Errorf("%w: %s", ErrPaymentConfigNotFound, method)
}

// AddPaymentConfig registers a new payment method.
func (p *Pool) AddPaymentConfig(cfg PaymentConfig) error {
	if cfg.Recipient.IsZero() {
		return ErrInvalidRecipient
	}
	if p.findConfig(cfg.Method) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePaymentConfig, cfg.Method)
	}
	if int(p.configCount) >= MaxPaymentConfigs {
		return fmt.Errorf("%w: %d methods", ErrPaymentConfigTableFull, MaxPaymentConfigs)
	}
	p.configs[p.configCount] = cfg
	p.configCount++
	return nil
}

// RemovePaymentConfig drops method, moving the last entry into its slot.
func (p *Pool) RemovePaymentConfig(method MethodID) error {
	i := p.findConfig(method)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPaymentConfigNotFound, method)
	}
	last := int(p.configCount) - 1
	p.configs[i] = p.configs[last]
	p.configs[last] = PaymentConfig{}
	p.configCount--
	return nil
}

func (p *Pool) findConfig(method MethodID) int {
	for i := 0; i < int(p.configCount); i++ {
		if p.configs[i].Method == method {
			return i
		}
	}
	return -1
}
