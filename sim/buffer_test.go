package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queue", func() {
	It("should keep fifo order across wrap-around", func() {
		q := NewQueue[int](3)

		q.Push(1)
		q.Push(2)
		v, _ := q.Pop()
		Expect(v).To(Equal(1))

		q.Push(3)
		q.Push(4)
		Expect(q.Full()).To(BeTrue())

		var got []int
		for q.Size() > 0 {
			v, ok := q.Pop()
			Expect(ok).To(BeTrue())
			got = append(got, v)
		}

		Expect(got).To(Equal([]int{2, 3, 4}))
	})

	It("should report empty on peek and pop", func() {
		q := NewQueue[string](1)

		_, ok := q.Peek()
		Expect(ok).To(BeFalse())
		_, ok = q.Pop()
		Expect(ok).To(BeFalse())
	})

	It("should panic on overflow", func() {
		q := NewQueue[int](1)
		q.Push(1)

		Expect(func() { q.Push(2) }).To(Panic())
	})
})
