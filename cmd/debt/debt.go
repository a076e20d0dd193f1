// Package debt handles the debt command, which plans debt repayment with the
// avalanche method.
package debt

import (
	"errors"
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/debt"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	extra    string
	schedule string
)

// Plan is the output of the debt command.
type Plan struct {
	Ordered []string `json:"ordered" yaml:"ordered"`
	Debts   []Payoff `json:"debts" yaml:"debts"`
}

// Payoff summarizes the repayment of one debt.
type Payoff struct {
	Lender        string               `json:"lender" yaml:"lender"`
	Balance       decimal.Decimal      `json:"balance" yaml:"balance"`
	APR           decimal.Decimal      `json:"apr" yaml:"apr"`
	Months        int                  `json:"months" yaml:"months"`
	TotalInterest decimal.Decimal      `json:"total_interest" yaml:"total_interest"`
	Schedule      []models.PayoffMonth `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Cmd represents the debt command
var Cmd = &cobra.Command{
	Use:   "debt",
	Short: "Plan debt repayment",
	Long: `Debt orders the debts of debts.yaml by interest rate, highest first, and
simulates the monthly payoff of each one.`,
	RunE: debtFunc,
}

func init() {
	Cmd.Flags().StringVar(&extra, "extra", "0", "Extra amount added to every monthly payment")
	Cmd.Flags().StringVar(&schedule, "schedule", "", "Print the month by month schedule of this lender")
}

func debtFunc(cmd *cobra.Command, args []string) error {
	more, err := decimal.NewFromString(extra)
	if err != nil {
		return fmt.Errorf("invalid --extra %q: %w", extra, err)
	}
	c, err := root.Container()
	if err != nil {
		return err
	}
	debts := c.GetDebts()
	if len(debts) == 0 {
		return errors.New("no debts configured")
	}
	res, err := debt.Avalanche(debts)
	if err != nil {
		return err
	}

	plan := Plan{Ordered: res.Ordered}
	byLender := make(map[string]models.Debt, len(debts))
	for _, d := range debts {
		byLender[d.Lender] = d
	}
	for _, lender := range res.Ordered {
		d := byLender[lender]
		months := debt.SimulatePayoff(d.Balance, d.APR, d.Payment, more)
		p := Payoff{Lender: lender, Balance: d.Balance, APR: d.APR, Months: len(months), TotalInterest: debt.TotalInterest(months)}
		if lender == schedule {
			p.Schedule = months
		}
		plan.Debts = append(plan.Debts, p)
	}

	return common.Print(cmd, plan, func(w io.Writer) error {
		common.Heading.Fprintln(w, "Repayment order (highest rate first)")
		tw := common.Table(w)
		fmt.Fprintln(tw, "LENDER\tBALANCE\tAPR\tMONTHS\tINTEREST")
		for _, p := range plan.Debts {
			months := fmt.Sprint(p.Months)
			if p.Months == 0 {
				months = common.Alert.Sprint("never")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\t%s\n", p.Lender, models.FormatMoney(p.Balance), p.APR.String(), months, models.FormatMoney(p.TotalInterest))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, p := range plan.Debts {
			if len(p.Schedule) == 0 {
				continue
			}
			common.Heading.Fprintf(w, "\nSchedule for %s\n", p.Lender)
			st := common.Table(w)
			fmt.Fprintln(st, "MONTH\tPAYMENT\tINTEREST\tPRINCIPAL\tBALANCE")
			for _, m := range p.Schedule {
				fmt.Fprintf(st, "%d\t%s\t%s\t%s\t%s\n", m.Month, models.FormatMoney(m.TotalPayment), models.FormatMoney(m.Interest), models.FormatMoney(m.Principal), models.FormatMoney(m.Balance))
			}
			if err := st.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
}
