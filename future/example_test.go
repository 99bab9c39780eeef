package future_test

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/future"
)

// ExampleThen shows that continuations on completed futures run immediately.
func ExampleThen() {
	computed := future.Successful(20)

	next := future.Then(computed, func(v int, err error) *future.Future[string] {
		if err != nil {
			return future.Failed[string](err)
		}

		return future.Successful(fmt.Sprintf("value=%d", v+1))
	})

	fmt.Println(next.IsDone())

	result, _ := next.Await()
	fmt.Println(result)
	// Output:
	// true
	// value=21
}
