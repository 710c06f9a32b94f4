package swap

import "errors"

var (
	errNoPair       = errors.New("swap: no liquid pair found for token")
	errNoQuote      = errors.New("swap: no protocol could quote this swap")
	errUSDCEndpoint = errors.New("swap: create_complete_swap rejects USDC on either end, use create_swap")
)
