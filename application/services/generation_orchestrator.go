package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/domain/config"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	"fabula-backend/domain/events"
	pkgerrors "fabula-backend/pkg/errors"
)

// GenerationOrchestrator drives AI drafting. Each node has at most one
// live stream; every stream carries a token so results arriving after the
// node moved on are discarded instead of applied. Failures and cancels
// roll the node back to NotesOnly; a failed stream never leaves a node
// stuck in Generating.
type GenerationOrchestrator struct {
	registry  *ProjectRegistry
	backend   ports.AiBackend
	packer    *ContextPacker
	publisher ports.EventPublisher
	cfg       config.DomainConfig
	logger    *zap.Logger

	mu    sync.Mutex
	runs  map[runKey]*generationRun
	epoch map[string]uint64
	seq   uint64
}

type runKey struct {
	projectID string
	nodeID    valueobjects.NodeID
}

type generationRun struct {
	token  uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGenerationOrchestrator creates an orchestrator
func NewGenerationOrchestrator(registry *ProjectRegistry, backend ports.AiBackend, packer *ContextPacker, publisher ports.EventPublisher, cfg config.DomainConfig, logger *zap.Logger) *GenerationOrchestrator {
	return &GenerationOrchestrator{
		registry:  registry,
		backend:   backend,
		packer:    packer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		runs:      make(map[runKey]*generationRun),
		epoch:     make(map[string]uint64),
	}
}

// Start begins generating a node's body. The caller must hold the project
// lock; the stream itself runs in the background.
func (o *GenerationOrchestrator) Start(projectID string, nodeID valueobjects.NodeID) error {
	_, err := o.start(projectID, nodeID)
	return err
}

func (o *GenerationOrchestrator) start(projectID string, nodeID valueobjects.NodeID) (<-chan struct{}, error) {
	managed, err := o.registry.Get(projectID)
	if err != nil {
		return nil, err
	}
	node, err := managed.Project.Timeline.Node(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Locked {
		return nil, pkgerrors.NewConflictError("node is locked against generation")
	}
	key := runKey{projectID: projectID, nodeID: nodeID}
	o.mu.Lock()
	_, live := o.runs[key]
	o.mu.Unlock()
	if live {
		// Covers both a stream in flight and a batch holding the node's
		// slot; the status check alone misses an undo mid-stream.
		return nil, pkgerrors.NewConflictError("a generation is already running for this node")
	}
	next, err := node.Content.BeginGeneration()
	if err != nil {
		return nil, err
	}

	managed.History.Push(managed.Project)
	o.publisher.Publish(projectID, events.NewUndoRedoChanged(projectID, managed.History.CanUndo(), managed.History.CanRedo()))

	node.Content = next
	managed.Project.Touch()
	managed.MarkDirty()
	o.publisher.Publish(projectID, events.NewContentUpdated(nodeID, node.Content.Status))

	req := o.packer.Pack(managed.Project, node)

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.seq++
	run := &generationRun{token: o.seq, cancel: cancel, done: make(chan struct{})}
	o.runs[key] = run
	o.mu.Unlock()

	go o.stream(ctx, key, run, req)
	return run.done, nil
}

func (o *GenerationOrchestrator) stream(ctx context.Context, key runKey, run *generationRun, req ports.GenerationRequest) {
	defer close(run.done)
	defer run.cancel()

	chunks, err := o.backend.Generate(ctx, req)
	if err != nil {
		o.finishFailure(key, run.token, err)
		return
	}

	var body []byte
	count := 0
	for chunk := range chunks {
		if chunk.Err != nil {
			o.finishFailure(key, run.token, chunk.Err)
			return
		}
		if chunk.Done {
			break
		}
		body = append(body, chunk.Token...)
		count++
		o.publisher.Publish(key.projectID, events.NewGenerationProgress(key.nodeID, chunk.Token, count))
	}
	if ctx.Err() != nil {
		o.finishFailure(key, run.token, ctx.Err())
		return
	}
	if len(body) == 0 {
		// A draft with no text is a failure, not an empty success.
		o.finishFailure(key, run.token, errors.New("backend produced an empty draft"))
		return
	}
	o.finishSuccess(key, run.token, string(body))
}

// finishSuccess commits a completed stream, unless the node moved on while
// the stream was running; then the result is stale and dropped.
func (o *GenerationOrchestrator) finishSuccess(key runKey, token uint64, body string) {
	o.registry.LockProject(key.projectID)
	defer o.registry.UnlockProject(key.projectID)

	if !o.claim(key, token) {
		return
	}
	managed, err := o.registry.Get(key.projectID)
	if err != nil {
		return
	}
	node, err := managed.Project.Timeline.Node(key.nodeID)
	if err != nil {
		// Deleted mid-stream; nothing to commit.
		return
	}
	next, err := node.Content.CompleteGeneration(body)
	if err != nil {
		// No longer Generating, an undo or reload won the race.
		return
	}
	node.Content = next
	managed.Project.Touch()
	managed.MarkDirty()
	o.publisher.Publish(key.projectID, events.NewContentUpdated(key.nodeID, node.Content.Status))
	o.publisher.Publish(key.projectID, events.NewGenerationComplete(key.nodeID))
}

// finishFailure rolls a node back to NotesOnly. Cancellation is quiet;
// real failures also raise GenerationError.
func (o *GenerationOrchestrator) finishFailure(key runKey, token uint64, cause error) {
	o.registry.LockProject(key.projectID)
	defer o.registry.UnlockProject(key.projectID)

	if !o.claim(key, token) {
		return
	}
	managed, err := o.registry.Get(key.projectID)
	if err != nil {
		return
	}
	node, err := managed.Project.Timeline.Node(key.nodeID)
	if err != nil {
		return
	}
	if node.Content.Status != valueobjects.StatusGenerating {
		return
	}
	node.Content = node.Content.FailGeneration()
	managed.Project.Touch()
	managed.MarkDirty()
	o.publisher.Publish(key.projectID, events.NewContentUpdated(key.nodeID, node.Content.Status))

	if !errors.Is(cause, context.Canceled) {
		o.logger.Warn("generation failed",
			zap.String("project_id", key.projectID),
			zap.String("node_id", key.nodeID.String()),
			zap.Error(cause),
		)
		o.publisher.Publish(key.projectID, events.NewGenerationError(key.nodeID, cause.Error()))
	}
}

// claim removes the run if its token is still current. A false return
// means a newer stream owns the node and this result must be discarded.
func (o *GenerationOrchestrator) claim(key runKey, token uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[key]
	if !ok || run.token != token {
		return false
	}
	delete(o.runs, key)
	return true
}

// Cancel stops the live stream for a node, if any
func (o *GenerationOrchestrator) Cancel(projectID string, nodeID valueobjects.NodeID) error {
	o.mu.Lock()
	run, ok := o.runs[runKey{projectID: projectID, nodeID: nodeID}]
	o.mu.Unlock()
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("generation for node %s", nodeID))
	}
	run.cancel()
	return nil
}

// CancelProject stops every live stream in a project and invalidates any
// running batch. Undo calls this before restoring a snapshot.
func (o *GenerationOrchestrator) CancelProject(projectID string) {
	o.mu.Lock()
	o.epoch[projectID]++
	var cancels []context.CancelFunc
	for key, run := range o.runs {
		if key.projectID == projectID {
			cancels = append(cancels, run.cancel)
		}
	}
	o.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// GeneratingNodes lists the nodes with a live stream in a project
func (o *GenerationOrchestrator) GeneratingNodes(projectID string) []valueobjects.NodeID {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []valueobjects.NodeID
	for key := range o.runs {
		if key.projectID == projectID {
			out = append(out, key.nodeID)
		}
	}
	return out
}

// GenerateChildren drafts a parent's eligible children one at a time, in
// start order. Locked, empty, and user-written children are skipped. The
// caller must hold the project lock for the eligibility scan; the batch
// itself runs in the background.
func (o *GenerationOrchestrator) GenerateChildren(projectID string, parentID valueobjects.NodeID) (int, error) {
	managed, err := o.registry.Get(projectID)
	if err != nil {
		return 0, err
	}
	if _, err := managed.Project.Timeline.Node(parentID); err != nil {
		return 0, err
	}

	var eligible []valueobjects.NodeID
	for _, child := range managed.Project.Timeline.ChildrenOf(parentID) {
		if child.Locked || !child.Content.Status.CanBeginGeneration() {
			continue
		}
		eligible = append(eligible, child.ID)
		if len(eligible) == o.cfg.MaxBatchChildren {
			break
		}
	}
	if len(eligible) == 0 {
		return 0, pkgerrors.NewValidationError("no children are eligible for generation")
	}

	// The batch holds the parent's generation slot for its whole run, so
	// a direct generation on the parent conflicts until the batch ends.
	key := runKey{projectID: projectID, nodeID: parentID}
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	if _, live := o.runs[key]; live {
		o.mu.Unlock()
		cancel()
		return 0, pkgerrors.NewConflictError("a generation is already running for this node")
	}
	o.seq++
	run := &generationRun{token: o.seq, cancel: cancel, done: make(chan struct{})}
	o.runs[key] = run
	epoch := o.epoch[projectID]
	o.mu.Unlock()

	go o.runBatch(ctx, key, run, eligible, epoch)
	return len(eligible), nil
}

func (o *GenerationOrchestrator) runBatch(ctx context.Context, key runKey, run *generationRun, children []valueobjects.NodeID, epoch uint64) {
	defer close(run.done)
	defer run.cancel()
	defer o.claim(key, run.token)

	projectID := key.projectID
	parentID := key.nodeID
	total := len(children)
	completed := 0
	o.publisher.Publish(projectID, events.NewBatchProgress(parentID, total, completed))

	for _, childID := range children {
		o.mu.Lock()
		stale := o.epoch[projectID] != epoch
		o.mu.Unlock()
		if stale || ctx.Err() != nil {
			return
		}

		o.registry.LockProject(projectID)
		done, err := o.start(projectID, childID)
		o.registry.UnlockProject(projectID)
		if err != nil {
			// Child became ineligible since the scan; move on.
			completed++
			o.publisher.Publish(projectID, events.NewBatchProgress(parentID, total, completed))
			continue
		}
		<-done
		completed++
		o.publisher.Publish(projectID, events.NewBatchProgress(parentID, total, completed))
	}
}

// FillGap creates a bridge node covering a detected gap and immediately
// drafts it. The bridge's notes name the flanking siblings so the draft
// connects them.
func (o *GenerationOrchestrator) FillGap(projectID string, parentID valueobjects.NodeID, level valueobjects.StoryLevel, gap valueobjects.TimeRange) (*entities.StoryNode, error) {
	managed, err := o.registry.Get(projectID)
	if err != nil {
		return nil, err
	}
	timeline := managed.Project.Timeline

	snapshot := managed.Project.Clone()
	node, err := timeline.CreateNode(parentID, level, gap, "Bridge")
	if err != nil {
		return nil, err
	}
	managed.History.PushState(snapshot)
	o.publisher.Publish(projectID, events.NewUndoRedoChanged(projectID, managed.History.CanUndo(), managed.History.CanRedo()))

	notes := "Bridge the surrounding story across this span."
	siblings := timeline.ChildrenOf(parentID)
	var before, after *entities.StoryNode
	for _, sib := range siblings {
		if sib.TimeRange.EndMS <= gap.StartMS {
			before = sib
		}
		if after == nil && sib.TimeRange.StartMS >= gap.EndMS {
			after = sib
		}
	}
	if before != nil && after != nil {
		notes = fmt.Sprintf("Bridge the story from %q to %q.", before.Name, after.Name)
	} else if before != nil {
		notes = fmt.Sprintf("Continue the story after %q.", before.Name)
	} else if after != nil {
		notes = fmt.Sprintf("Set up the story leading into %q.", after.Name)
	}
	node.Content = node.Content.WriteNotes(notes)
	managed.Project.Touch()
	managed.MarkDirty()
	o.publisher.Publish(projectID, events.NewStructuralChanged(projectID))

	if err := o.Start(projectID, node.ID); err != nil {
		// The bridge stands even if drafting could not start.
		o.logger.Warn("bridge drafted without generation",
			zap.String("project_id", projectID),
			zap.String("node_id", node.ID.String()),
			zap.Error(err),
		)
	}
	return node, nil
}
