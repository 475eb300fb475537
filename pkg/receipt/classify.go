package receipt

import (
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/yurifrl/reembolso/pkg/models"
)

type signal struct {
	text string
	kind models.DocumentKind
}

// Signals are matched case-sensitively against the collapsed text.
var signals = []signal{
	{"DANFE", models.KindNFe},
	{"Documento Auxiliar da Nota Fiscal Eletrônica", models.KindNFe},
	{"CHAVE DE ACESSO", models.KindNFe},
	{"NFC", models.KindNFCe},
	{"Cupom", models.KindNFCe},
	{"Consumidor", models.KindNFCe},
	{"VALOR PAGO", models.KindNFCe},
}

var (
	classifierOnce sync.Once
	classifierMu   sync.Mutex
	classifier     *ahocorasick.Matcher
)

func matcher() *ahocorasick.Matcher {
	classifierOnce.Do(func() {
		patterns := make([][]byte, len(signals))
		for i, s := range signals {
			patterns[i] = []byte(s.text)
		}
		classifier = ahocorasick.NewMatcher(patterns)
	})
	return classifier
}

// Classify tells which fiscal document the text came from. DANFE signals win
// over consumer receipt signals; anything else is a service invoice.
func Classify(text string) models.DocumentKind {
	m := matcher()
	classifierMu.Lock()
	hits := m.Match([]byte(text))
	classifierMu.Unlock()

	kind := models.KindNFSe
	for _, idx := range hits {
		if idx < 0 || idx >= len(signals) {
			continue
		}
		switch signals[idx].kind {
		case models.KindNFe:
			return models.KindNFe
		case models.KindNFCe:
			kind = models.KindNFCe
		}
	}
	return kind
}
