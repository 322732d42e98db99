/*
Package augment applies chains of transformations to batches of numeric
arrays using a pool of workers.

# Values

Every value flowing through the stream is either a single array or a
tuple of arrays. The shape is set once when the value is created:

	augment.SingleValue(a)
	augment.TupleValue(image, mask)

and it's preserved by augmentation: single values result into single
values, tuples into tuples.

# Chains

Augment is a function of arrays which returns new arrays. Augments are
combined into a Chain and applied in declared order, output of one augment
is the input of the next one:

	chain := augment.NewChain(
		transform.Scale(2),
		transform.Offset(-1),
	)
	v, err := chain.Apply(augment.SingleValue(augment.Array{1, 2, 3}))

If augment fails, ChainApplicationError reports the index of that augment.
If augment declares its arity and receives different number of arrays, the
error reports the augment which produced them.

# Streams

Stream pulls values from a source, fills batches of fixed size and
augments all values of a batch concurrently. Batch is yielded only when all
its values are augmented:

	s, err := augment.New(src, 32,
		augment.WithAugments(augments...),
		augment.WithWorkers(8),
		augment.WithOrder(batch.Shuffled(seed)),
	)
	for b, err := range s.Batches(ctx) {
		...
	}

Each iteration starts a Pass that owns a worker pool. The pool is stopped
when iteration is over: source is exhausted, consumer breaks the loop, or
error occurs. If any value of the batch fails, the batch is not yielded and
the WorkerTaskError is returned after the pool is stopped.
*/
package augment
