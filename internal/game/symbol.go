package game

import "fmt"

// Symbol é uma das 6 faces fixas do dado. O alfabeto é fechado, então
// contagens e scores usam arrays indexados por Symbol em vez de maps.
type Symbol int

const (
	Reindeer Symbol = iota
	Potion
	Shrimp
	Crab
	Fish
	Chicken
)

// NumSymbols é o tamanho do alfabeto.
const NumSymbols = 6

var symbolNames = [NumSymbols]string{"reindeer", "potion", "shrimp", "crab", "fish", "chicken"}

func (s Symbol) String() string {
	if !s.Valid() {
		return fmt.Sprintf("symbol(%d)", int(s))
	}
	return symbolNames[s]
}

// Valid informa se o valor pertence ao alfabeto.
func (s Symbol) Valid() bool { return s >= 0 && s < NumSymbols }

// ParseSymbol converte o nome externo para Symbol.
func ParseSymbol(name string) (Symbol, error) {
	for i, n := range symbolNames {
		if n == name {
			return Symbol(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown symbol %q", ErrValidation, name)
}

// AllSymbols retorna o alfabeto na ordem canônica.
func AllSymbols() [NumSymbols]Symbol {
	var all [NumSymbols]Symbol
	for i := range all {
		all[i] = Symbol(i)
	}
	return all
}

// Outcome é o resultado de uma rolagem: exatamente 3 símbolos, repetição permitida.
type Outcome [3]Symbol

// Counts conta as ocorrências de cada símbolo no resultado.
func (o Outcome) Counts() [NumSymbols]int {
	var c [NumSymbols]int
	for _, s := range o {
		if s.Valid() {
			c[s]++
		}
	}
	return c
}

// Winning retorna os símbolos distintos presentes no resultado, na ordem canônica.
func (o Outcome) Winning() []Symbol {
	counts := o.Counts()
	var w []Symbol
	for i, n := range counts {
		if n > 0 {
			w = append(w, Symbol(i))
		}
	}
	return w
}

// Strings converte o resultado para os nomes externos.
func (o Outcome) Strings() [3]string {
	var out [3]string
	for i, s := range o {
		out[i] = s.String()
	}
	return out
}
