// Package loan is the microloan application.
//
// A borrower requests a loan, the admin approves it with an installment,
// the borrower draws the principal down and then repays it installment by
// installment until nothing remains. The admin may mark an active loan as
// defaulted instead:
//
//	requested -> approved -> active -> repaid | defaulted
//
// repay is the one re-entrant transition: it loops on active until the
// remaining balance reaches zero.
package loan
