package transform

import (
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

const tolerance = 1e-3

var nodeTag = donburi.NewTag()

func newNode(t *testing.T, w donburi.World, tr Tree) donburi.Entity {
	t.Helper()
	e := w.Create(nodeTag)
	require.NoError(t, tr.Attach(e))
	return e
}

func assertMat4Near(t *testing.T, want, got mgl32.Mat4, msg string) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tolerance, "%s: element %d", msg, i)
	}
}

// assertConsistent walks the whole tree and checks world == parent.world * local at every node.
func assertConsistent(t *testing.T, tr Tree, root donburi.Entity) {
	t.Helper()
	n, err := tr.Get(root)
	require.NoError(t, err)
	for _, c := range n.Children() {
		cn, err := tr.Get(c)
		require.NoError(t, err)
		assertMat4Near(t, n.WorldMatrix().Mul4(cn.LocalMatrix()), cn.WorldMatrix(), "child world matrix")
		assertConsistent(t, tr, c)
	}
}

func randomQuat(r *rand.Rand) mgl32.Quat {
	axis := mgl32.Vec3{r.Float32() - 0.5, r.Float32() - 0.5, r.Float32() - 0.5}
	if axis.Len() < 1e-3 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	return mgl32.QuatRotate(r.Float32()*6.28, axis.Normalize())
}

func randomVec(r *rand.Rand, scale float32) mgl32.Vec3 {
	return mgl32.Vec3{(r.Float32() - 0.5) * scale, (r.Float32() - 0.5) * scale, (r.Float32() - 0.5) * scale}
}

func buildRandomTree(t *testing.T, r *rand.Rand, w donburi.World, tr Tree, n int) []donburi.Entity {
	t.Helper()
	nodes := []donburi.Entity{newNode(t, w, tr)}
	for i := 1; i < n; i++ {
		e := newNode(t, w, tr)
		require.True(t, tr.AddChild(nodes[r.Intn(len(nodes))], e))
		s := 0.5 + r.Float32()
		require.NoError(t, tr.SetLocal(e, randomVec(r, 10), randomQuat(r), mgl32.Vec3{s, s, s}))
		nodes = append(nodes, e)
	}
	return nodes
}

func TestAttachIsIdentity(t *testing.T) {
	w := donburi.NewWorld()
	tr := NewTree(w)
	e := newNode(t, w, tr)

	n, err := tr.Get(e)
	require.NoError(t, err)
	assertMat4Near(t, mgl32.Ident4(), n.WorldMatrix(), "world")
	assert.Equal(t, donburi.Null, n.Parent())
	assert.Empty(t, n.Children())
}

func TestSetWorldPositionPropagatesToEveryDescendant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	w := donburi.NewWorld()
	tr := NewTree(w)
	nodes := buildRandomTree(t, r, w, tr, 24)

	for i := 0; i < 50; i++ {
		target := nodes[r.Intn(len(nodes))]
		switch i % 3 {
		case 0:
			require.NoError(t, tr.SetWorldPosition(target, randomVec(r, 20)))
		case 1:
			require.NoError(t, tr.SetWorldRotation(target, randomQuat(r)))
		default:
			require.NoError(t, tr.SetLocalPosition(target, randomVec(r, 20)))
		}
		assertConsistent(t, tr, nodes[0])
	}
}

func TestChildWorldFollowsParent(t *testing.T) {
	w := donburi.NewWorld()
	tr := NewTree(w)
	parent, child, grandchild := newNode(t, w, tr), newNode(t, w, tr), newNode(t, w, tr)
	require.True(t, tr.AddChild(parent, child))
	require.True(t, tr.AddChild(child, grandchild))
	require.NoError(t, tr.SetLocalPosition(child, mgl32.Vec3{1, 0, 0}))
	require.NoError(t, tr.SetLocalPosition(grandchild, mgl32.Vec3{0, 1, 0}))

	require.NoError(t, tr.SetLocalScale(parent, mgl32.Vec3{2, 2, 2}))
	require.NoError(t, tr.SetLocalRotation(parent, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})))
	require.NoError(t, tr.SetWorldPosition(parent, mgl32.Vec3{10, 0, 0}))

	g, err := tr.Get(grandchild)
	require.NoError(t, err)
	// parent rotates +X to +Y and +Y to -X, scaled by 2.
	assert.True(t, common.Vec3Near(mgl32.Vec3{8, 2, 0}, g.WorldPosition(), tolerance), "got %v", g.WorldPosition())
	assert.True(t, common.Vec3Near(mgl32.Vec3{2, 2, 2}, g.WorldScale(), tolerance))
}

func TestLocalWorldRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	w := donburi.NewWorld()
	tr := NewTree(w)
	nodes := buildRandomTree(t, r, w, tr, 12)

	for _, e := range nodes[1:] {
		local := randomVec(r, 5)
		require.NoError(t, tr.SetLocalPosition(e, local))
		n, err := tr.Get(e)
		require.NoError(t, err)
		assert.Equal(t, local, n.LocalPosition(), "local position is stored exactly")

		world := n.WorldPosition()
		require.NoError(t, tr.SetWorldPosition(e, world))
		n, err = tr.Get(e)
		require.NoError(t, err)
		assert.True(t, common.Vec3Near(world, n.WorldPosition(), tolerance))
		assert.True(t, common.Vec3Near(local, n.LocalPosition(), tolerance), "want %v got %v", local, n.LocalPosition())
	}
}

func TestAddChildSoftFailures(t *testing.T) {
	w := donburi.NewWorld()
	var warnings []string
	tr := NewTree(w, WithWarningHandler(func(msg string, _ ...any) { warnings = append(warnings, msg) }))
	a, b, c := newNode(t, w, tr), newNode(t, w, tr), newNode(t, w, tr)
	require.True(t, tr.AddChild(a, b))
	require.True(t, tr.AddChild(b, c))

	assert.False(t, tr.AddChild(a, donburi.Null))
	assert.False(t, tr.AddChild(a, a))
	assert.False(t, tr.AddChild(c, a), "cycle")
	assert.Len(t, warnings, 3)

	n, err := tr.Get(a)
	require.NoError(t, err)
	assert.Equal(t, []donburi.Entity{b}, n.Children())
}

func TestReparentDoesNotRecompute(t *testing.T) {
	w := donburi.NewWorld()
	tr := NewTree(w)
	a, b := newNode(t, w, tr), newNode(t, w, tr)
	require.NoError(t, tr.SetWorldPosition(a, mgl32.Vec3{5, 0, 0}))
	require.NoError(t, tr.SetLocalPosition(b, mgl32.Vec3{1, 0, 0}))

	require.True(t, tr.AddChild(a, b))
	n, err := tr.Get(b)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, n.WorldPosition(), "world is stale until the next setter")

	require.NoError(t, tr.SetLocalPosition(b, n.LocalPosition()))
	n, err = tr.Get(b)
	require.NoError(t, err)
	assert.True(t, common.Vec3Near(mgl32.Vec3{6, 0, 0}, n.WorldPosition(), tolerance))

	assert.True(t, tr.RemoveChild(a, b))
	assert.False(t, tr.RemoveChild(a, b))
}

func TestDestroyedNodesFailClosed(t *testing.T) {
	w := donburi.NewWorld()
	tr := NewTree(w)
	parent, child := newNode(t, w, tr), newNode(t, w, tr)
	require.True(t, tr.AddChild(parent, child))

	w.Remove(child)
	assert.False(t, tr.Valid(child))
	assert.ErrorIs(t, tr.SetLocalPosition(child, mgl32.Vec3{1, 2, 3}), ErrInvalidNode)
	_, err := tr.Get(child)
	assert.ErrorIs(t, err, ErrInvalidNode)

	// The parent still references the dead child; propagation skips it.
	assert.NoError(t, tr.SetWorldPosition(parent, mgl32.Vec3{1, 1, 1}))
}

func TestDetachOrphansChildren(t *testing.T) {
	w := donburi.NewWorld()
	tr := NewTree(w)
	root, mid, leaf := newNode(t, w, tr), newNode(t, w, tr), newNode(t, w, tr)
	require.True(t, tr.AddChild(root, mid))
	require.True(t, tr.AddChild(mid, leaf))

	require.NoError(t, tr.Detach(mid))

	r, _ := tr.Get(root)
	l, _ := tr.Get(leaf)
	assert.Empty(t, r.Children())
	assert.Equal(t, donburi.Null, l.Parent())
}
