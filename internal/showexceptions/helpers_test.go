package showexceptions_test

import "github.com/jsamuelsen11/showexceptions/internal/fault"

func faultRecord(err error) fault.Record {
	return fault.FromError(err)
}
