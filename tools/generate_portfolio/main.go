// Portfolio Ledger Generator
//
// Generates a synthetic investment ledger with positions held at cost
// and a monthly price history, for profiling the gains pipeline.
//
// Usage:
//
//	go run main.go > portfolio.beancount
//	go run main.go 120 > portfolio.beancount  # number of months
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"
)

const defaultMonths = 60

var commodities = []struct {
	symbol    string
	basePrice float64
}{
	{"AAPL", 150},
	{"MSFT", 300},
	{"GOOGL", 120},
	{"VTI", 220},
	{"VXUS", 55},
	{"BTC", 40000},
}

func main() {
	months := defaultMonths
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "invalid month count %q\n", os.Args[1])
			os.Exit(1)
		}
		months = n
	}

	rng := rand.New(rand.NewSource(42))
	start := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

	fmt.Println(`option "title" "Generated Portfolio"`)
	fmt.Println(`option "operating_currency" "USD"`)
	fmt.Println()
	fmt.Printf("%s open Assets:Brokerage:Cash USD\n", start.Format("2006-01-02"))
	for _, c := range commodities {
		fmt.Printf("%s open Assets:Brokerage:%s %s\n", start.Format("2006-01-02"), c.symbol, c.symbol)
		fmt.Printf("%s open Income:Brokerage:%s:Gains\n", start.Format("2006-01-02"), c.symbol)
	}
	fmt.Println()

	prices := make([]float64, len(commodities))
	for i, c := range commodities {
		prices[i] = c.basePrice
	}

	for m := 0; m < months; m++ {
		monthStart := start.AddDate(0, m, 0)

		// Random walk, mostly drifting upward.
		for i := range prices {
			prices[i] *= 1 + (rng.Float64()-0.45)*0.1
		}

		for i, c := range commodities {
			priceDay := monthStart.AddDate(0, 0, rng.Intn(27))
			fmt.Printf("%s price %s %.2f USD\n", priceDay.Format("2006-01-02"), c.symbol, prices[i])
		}

		// A couple of trades per month.
		for t := 0; t < 2+rng.Intn(3); t++ {
			i := rng.Intn(len(commodities))
			c := commodities[i]
			units := 1 + rng.Intn(20)
			day := monthStart.AddDate(0, 0, rng.Intn(27))
			cost := prices[i] * (1 + (rng.Float64()-0.5)*0.02)

			fmt.Println()
			fmt.Printf("%s * \"Buy %s\"\n", day.Format("2006-01-02"), c.symbol)
			fmt.Printf("  Assets:Brokerage:%s  %d %s {%.2f USD}\n", c.symbol, units, c.symbol, cost)
			fmt.Printf("  Assets:Brokerage:Cash  %.2f USD\n", -float64(units)*cost)
		}
		fmt.Println()
	}
}
