package compliance

import (
	"context"
	"sync"
	"time"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// DefaultBatchWorkers bounds batch fan-out when the config leaves it unset.
const DefaultBatchWorkers = 8

// Config carries the engine tunables. Zero values fall back to the package
// defaults.
type Config struct {
	ExpiringSoonDays  int
	MonthlyBlockDays  int
	PassportMinMonths int
	Workers           int
}

// Engine evaluates document compliance. It is pure: every method takes the
// evaluation day from the caller and touches no clock, store, or network, so
// the same snapshot always yields the same result.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.ExpiringSoonDays <= 0 {
		cfg.ExpiringSoonDays = DefaultExpiringSoonDays
	}
	if cfg.MonthlyBlockDays <= 0 {
		cfg.MonthlyBlockDays = DefaultMonthlyBlockDays
	}
	if cfg.PassportMinMonths <= 0 {
		cfg.PassportMinMonths = DefaultPassportMinMonths
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultBatchWorkers
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// EvaluateDocument derives the full status of one document. A type with no
// resolvable rule reports RuleMissing rather than failing, so one broken rule
// row never poisons a batch.
func (e *Engine) EvaluateDocument(doc models.DocumentRecord, docType models.DocumentType, rules RuleSet, asOf time.Time) DocumentStatus {
	status := DocumentStatus{
		Document:        doc,
		Mandatory:       docType.Mandatory,
		DaysUntilExpiry: daysUntil(doc, asOf),
	}

	rule, err := rules.Resolve(docType)
	if err != nil {
		status.State = StateRuleMissing
		status.Fine = FineResult{}
		return status
	}
	status.Mandatory = rule.Mandatory
	status.State = EvaluateLifecycle(doc, docType, rule, asOf, e.cfg.ExpiringSoonDays)
	status.Fine = AccrueFine(doc, rule, status.State, asOf, e.cfg.MonthlyBlockDays)
	return status
}

// EvaluateEmployee evaluates every active document of one employee and folds
// the results into a summary, including dependency warnings. Superseded
// document instances are skipped; their replacements carry the compliance
// picture forward.
func (e *Engine) EvaluateEmployee(employee models.Employee, docs []models.DocumentRecord, types map[string]models.DocumentType, rules RuleSet, asOf time.Time) EmployeeSummary {
	statuses := make([]DocumentStatus, 0, len(docs))
	active := make([]models.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		if !doc.Active {
			continue
		}
		active = append(active, doc)

		docType, ok := types[doc.TypeKey]
		if !ok {
			statuses = append(statuses, DocumentStatus{
				Document:        doc,
				State:           StateRuleMissing,
				DaysUntilExpiry: daysUntil(doc, asOf),
			})
			continue
		}
		statuses = append(statuses, e.EvaluateDocument(doc, docType, rules, asOf))
	}

	warnings := CheckDependencies(active, asOf, e.cfg.PassportMinMonths)
	return SummarizeEmployee(employee, statuses, warnings)
}

// EmployeeInput pairs an employee with their document snapshot for a batch
// run.
type EmployeeInput struct {
	Employee  models.Employee
	Documents []models.DocumentRecord
}

// EvaluateBatch evaluates many employees concurrently with a bounded worker
// pool. Results keep input order. Cancellation is honored between employees;
// an in-flight employee evaluation always completes.
func (e *Engine) EvaluateBatch(ctx context.Context, inputs []EmployeeInput, types map[string]models.DocumentType, rules []models.ComplianceRule, asOf time.Time) ([]EmployeeSummary, error) {
	if len(inputs) == 0 {
		return []EmployeeSummary{}, nil
	}

	ruleSets := make(map[string]RuleSet)
	for _, in := range inputs {
		if _, ok := ruleSets[in.Employee.CompanyID]; !ok {
			ruleSets[in.Employee.CompanyID] = NewRuleSet(rules, in.Employee.CompanyID)
		}
	}

	workers := e.cfg.Workers
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]EmployeeSummary, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				in := inputs[i]
				results[i] = e.EvaluateEmployee(in.Employee, in.Documents, types, ruleSets[in.Employee.CompanyID], asOf)
			}
		}()
	}

	var err error
feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return results, nil
}
