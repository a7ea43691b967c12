package submission

import (
	"fmt"
	"strings"

	"auction-house/internal/amount"
	model "auction-house/internal/models"
)

// ItemLabel returns the short name for a payload: the Pokemon's name, or
// the first line of the TM details.
func ItemLabel(p model.Payload) string {
	if p.Category == model.CategoryTM {
		details := strings.TrimSpace(p.TMDetails)
		if idx := strings.IndexByte(details, '\n'); idx >= 0 {
			details = details[:idx]
		}
		if details == "" {
			return "TM"
		}
		return details
	}
	return p.PokemonName
}

// RenderDescription builds the listing text shown for an auction. The text
// carries no generated ids, so it is written once at approval; id-bearing
// headers are rendered at read time.
func RenderDescription(p model.Payload) string {
	var b strings.Builder
	b.WriteString(ItemLabel(p))
	b.WriteByte('\n')

	if p.Category == model.CategoryTM {
		if rest := strings.TrimSpace(p.TMDetails); rest != "" && rest != ItemLabel(p) {
			b.WriteString(rest)
			b.WriteByte('\n')
		}
	} else {
		fmt.Fprintf(&b, "Nature: %s\n", p.Nature.Text)
		fmt.Fprintf(&b, "IVs: %s\n", p.IVs.Text)
		fmt.Fprintf(&b, "Moveset: %s\n", p.Moveset.Text)
		if p.Boosted {
			fmt.Fprintf(&b, "Boosted: %s\n", p.BoostInfo)
		} else {
			b.WriteString("Boosted: Unboosted\n")
		}
	}

	fmt.Fprintf(&b, "Base Price: %s\n", amount.Format(p.BasePrice))
	if p.SellerName != "" {
		fmt.Fprintf(&b, "Seller: %s", p.SellerName)
	}
	return strings.TrimRight(b.String(), "\n")
}
