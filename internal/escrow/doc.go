// Package escrow is the file-access escrow application.
//
// A file owner (the initiator) offers access to a file for a fee. The
// recipient (the counterparty) pays the fee into escrow, then either
// confirms receipt, which releases the fee to the owner, or disputes the
// transfer, which the admin resolves in favour of one side:
//
//	requested -> paid -> completed
//	paid -> disputed -> resolved_initiator | resolved_counterparty
//	requested -> (cancelled: record deleted)
package escrow
