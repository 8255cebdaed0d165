package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadfive-network/leadfive/internal/domain"
)

func init() {
	rootCmd.AddCommand(planCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the compensation plan",
	Long:  `Print the package tiers, bonus rates, pool allocations and withdrawal policy.`,
	Run:   runPlan,
}

func runPlan(cmd *cobra.Command, args []string) {
	p := domain.DefaultPlan()

	fmt.Println("Packages:")
	for _, pkg := range p.Packages {
		fmt.Printf("  %d. %-10s %s USDT\n", pkg.Tier, pkg.Name, domain.FormatUSDT(pkg.Price))
	}

	fmt.Println("\nDeposit allocation (of distributable, after fee):")
	fmt.Printf("  Platform fee     %s\n", pct(p.AdminFeeBps))
	fmt.Printf("  Direct bonus     %s\n", pct(p.DirectBonusBps))
	var levelSum int64
	for _, bps := range p.LevelBonusBps {
		levelSum += bps
	}
	fmt.Printf("  Level bonus      %s over %d levels\n", pct(levelSum), len(p.LevelBonusBps))
	fmt.Printf("  Upline bonus     %s across %d slots\n", pct(p.UplineBonusBps), p.UplineSlots)
	fmt.Printf("  Leader pool      %s\n", pct(p.LeaderPoolBps))
	fmt.Printf("  Club pool        %s\n", pct(p.ClubPoolBps))
	fmt.Printf("  Help pool        %s\n", pct(p.HelpPoolBps))

	fmt.Printf("\nEarnings cap: %dx invested\n", p.EarningsCapMultiple)

	fmt.Println("\nWithdrawal splits (withdraw/reinvest):")
	for _, s := range p.WithdrawalSplits {
		fmt.Printf("  %2d+ directs: %s / %s\n", s.MinDirects, pct(s.WithdrawBps), pct(s.ReinvestBps))
	}
	fmt.Printf("Minimum withdrawal: %s USDT, fee %s on the withdrawn portion\n",
		domain.FormatUSDT(p.MinWithdrawal), pct(p.WithdrawalFeeBps))
}

// pct renders basis points as a percentage.
func pct(bps int64) string {
	s := strconv.FormatFloat(float64(bps)/100, 'f', -1, 64)
	return s + "%"
}

// splitHostPort parses a host:port listen address.
func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q", s)
	}
	return host, port, nil
}
