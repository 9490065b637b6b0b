// Package billing prices subscription plans and issues invoices.
//
// # Overview
//
// Prices come straight from the plan catalog: monthly and annual prices are
// listed per plan, and a quarter is priced as three months with a ten percent
// discount. Every invoice carries a flat ten percent tax on its subtotal and
// falls due fourteen days after issue.
//
// Invoices start Open and move to Paid exactly once, when the payment
// processor settles them. The single line item names the plan and cycle and
// carries the plan id, which is what activates a pending subscription after
// payment.
//
// # Usage Example
//
//	engine := billing.NewEngine()
//
//	inv := engine.GenerateInvoice(userID, subID, plan, billing.CycleQuarterly)
//	fmt.Printf("%s due %s: %s\n", inv.Number, inv.DueDate.Format("2006-01-02"), inv.Total)
//
// # Related Packages
//
//   - pkg/catalog: the plans being priced
//   - pkg/payment: settles the invoices this package issues
package billing
