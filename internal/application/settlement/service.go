// Package settlement orchestrates the settlement pipeline: normalization,
// reconciliation against payment evidence and the atomic ledger commit.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gestion/settlement/internal/domain/catalog"
	"github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/domain/shared"
)

// CommitConfig carries the ledger-commit constants: the courier vendor
// table, supplier codes and document-number limits.
type CommitConfig struct {
	// CourierVendors maps an upper-cased courier name to its supplier code.
	CourierVendors map[string]string
	// DefaultCourierVendor backs couriers absent from the table.
	DefaultCourierVendor string
	// CarrierSupplier is the supplier code of the marketplace carrier.
	CarrierSupplier string
	// MaxDocNumber is the highest purchase document number the legacy
	// counter may legally mint.
	MaxDocNumber int
	// MinSaleCost floors the sale-line cost of subsidized lines so the
	// zero-cost abort cannot reject them.
	MinSaleCost decimal.Decimal
	// SellerAccount is the marketplace seller account recorded on payment
	// linkage rows.
	SellerAccount string
	// PaymentMethod recorded on the sale header.
	PaymentMethod string
	SKUs          settlement.ShippingSKUs
}

// DefaultCommitConfig returns the production commit constants.
func DefaultCommitConfig() CommitConfig {
	return CommitConfig{
		CourierVendors: map[string]string{
			"CANDYHO":  "001",
			"OMYTECH":  "002",
			"PATO":     "003",
			"JHONATAN": "004",
		},
		DefaultCourierVendor: "003",
		CarrierSupplier:      "034",
		MaxDocNumber:         100000,
		MinSaleCost:          decimal.NewFromFloat(0.01),
		PaymentMethod:        "TRANSFERENCIA",
		SKUs:                 settlement.DefaultShippingSKUs(),
	}
}

// Service runs settlement attempts end to end.
type Service struct {
	normalizer *settlement.Normalizer
	reconciler *settlement.Reconciler
	catalog    catalog.Lookup
	counters   settlement.CounterRepository
	ledger     settlement.LedgerRepository
	verifier   settlement.VerificationRepository
	scope      TransactionScope
	notifier   settlement.Notifier
	cfg        CommitConfig
	logger     *zap.Logger
}

// NewService creates a settlement Service.
func NewService(
	normalizer *settlement.Normalizer,
	reconciler *settlement.Reconciler,
	catalogRepo catalog.Lookup,
	counters settlement.CounterRepository,
	ledger settlement.LedgerRepository,
	verifier settlement.VerificationRepository,
	scope TransactionScope,
	notifier settlement.Notifier,
	cfg CommitConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		normalizer: normalizer,
		reconciler: reconciler,
		catalog:    catalogRepo,
		counters:   counters,
		ledger:     ledger,
		verifier:   verifier,
		scope:      scope,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Settle runs one order group through the full pipeline. Group-level
// failures (mismatch, exhausted codes, zero cost) come back as a response
// in a terminal failure state with a nil error; only infrastructure
// failures return an error, which aborts a surrounding batch.
func (s *Service) Settle(ctx context.Context, req SettleGroupRequest) (*SettlementResponse, error) {
	group := req.ToOrderGroup()
	attempt := settlement.NewAttempt(group.Refs())
	log := s.logger.With(zap.String("attempt_id", attempt.ID.String()),
		zap.Strings("order_refs", attempt.OrderRefs))

	for _, ref := range group.Refs() {
		settled, err := s.ledger.SettledSaleFor(ctx, ref)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if settled != nil {
			return s.reject(attempt, settlement.RejectionReport{
				Reason: fmt.Sprintf("order %s already settled under sale document %d", ref, settled.SaleDocNumber),
			}), nil
		}
	}

	items, err := s.normalizer.Normalize(ctx, group)
	if err != nil {
		if errors.Is(err, shared.ErrInfrastructure) {
			return nil, err
		}
		log.Warn("normalization rejected group", zap.Error(err))
		return s.reject(attempt, settlement.RejectionReport{Reason: err.Error()}), nil
	}
	if err := attempt.Transition(settlement.StateNormalized); err != nil {
		return nil, err
	}

	res := s.reconciler.Reconcile(group, items)
	if !res.WithinTolerance {
		return s.reject(attempt, settlement.RejectionReport{
			Reason:        "invoice total does not match payment evidence",
			ExpectedTotal: res.ExpectedTotal,
			ActualTotal:   res.ActualTotal,
		}), nil
	}

	next := settlement.StateAccepted
	if res.ExceptionApplied {
		next = settlement.StateAcceptedException
		s.notifier.NotifyAmountShippingException(ctx, attempt.OrderRefs, res.ExpectedTotal, res.ActualTotal)
	}
	if err := attempt.Transition(next); err != nil {
		return nil, err
	}
	if err := attempt.Transition(settlement.StateCommitting); err != nil {
		return nil, err
	}

	tx, err := s.commit(ctx, group, res)
	if err != nil {
		attempt.Fail(settlement.StateAborted, err.Error())
		if errors.Is(err, shared.ErrInfrastructure) {
			return nil, err
		}
		log.Error("commit aborted", zap.Error(err))
		resp := s.response(attempt, res)
		resp.Rejection = rejectionFor(err, res)
		return resp, nil
	}
	if err := attempt.Transition(settlement.StateCommitted); err != nil {
		return nil, err
	}

	resp := s.response(attempt, res)
	resp.SaleDocNumber = tx.SaleDocNumber
	resp.PurchaseDocNumbers = tx.PurchaseDocNumbers
	resp.ReservedCodes = tx.ReservedCodes
	resp.Verification = s.verify(ctx, tx, group)
	log.Info("settlement committed",
		zap.Int("sale_doc", tx.SaleDocNumber),
		zap.Ints("purchase_docs", tx.PurchaseDocNumbers),
		zap.String("total", res.ActualTotal.StringFixed(2)),
		zap.Bool("exception", res.ExceptionApplied))
	return resp, nil
}

// SettleBatch processes several groups independently. A group failure is
// reported in its result and the batch continues; an infrastructure error
// aborts the whole run.
func (s *Service) SettleBatch(ctx context.Context, req SettleBatchRequest) (*SettleBatchResponse, error) {
	out := &SettleBatchResponse{Results: make([]SettlementResponse, 0, len(req.Groups))}
	for _, g := range req.Groups {
		resp, err := s.Settle(ctx, g)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, *resp)
		if resp.State == string(settlement.StateCommitted) {
			out.Committed++
		} else {
			out.Rejected++
		}
	}
	return out, nil
}

// SettledFor answers the already-settled query for one order reference.
func (s *Service) SettledFor(ctx context.Context, orderRef string) (*SettledSaleResponse, error) {
	sale, err := s.ledger.SettledSaleFor(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	return &SettledSaleResponse{
		SaleDocNumber: sale.SaleDocNumber,
		OrderRefs:     sale.OrderRefs,
		Total:         sale.Total,
	}, nil
}

// commit mints document numbers, writes the silent shipping purchases and
// the sale with its reserved codes, payment linkage rows and courier
// economics, all inside one transaction. Counter increments happen before
// the transaction opens and are not rolled back with it.
func (s *Service) commit(ctx context.Context, group settlement.OrderGroup, res settlement.ReconciliationResult) (*settlement.LedgerTransaction, error) {
	saleNo, err := s.counters.NextSaleNumber(ctx)
	if err != nil {
		return nil, err
	}

	purchases, err := s.planPurchases(ctx, group, res.Items)
	if err != nil {
		return nil, err
	}

	tx := &settlement.LedgerTransaction{SaleDocNumber: saleNo}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		minted := make(map[string][]string, len(purchases))
		for _, doc := range purchases {
			codes, err := repos.Ledger().InsertPurchase(ctx, doc)
			if err != nil {
				return err
			}
			minted[doc.SKU] = append(minted[doc.SKU], codes...)
			tx.PurchaseDocNumbers = append(tx.PurchaseDocNumbers, doc.Number)
		}

		sale := settlement.SaleDocument{
			Number:        saleNo,
			OrderRefs:     group.Refs(),
			PaymentMethod: s.cfg.PaymentMethod,
			Total:         res.ActualTotal,
		}
		for _, li := range res.Items {
			cost, err := s.resolveCost(ctx, li)
			if err != nil {
				return err
			}
			codes := minted[li.SKU]
			if len(codes) < li.Quantity {
				free, err := repos.Codes().FreeCodes(ctx, li.SKU, li.Quantity-len(codes))
				if err != nil {
					return err
				}
				codes = append(codes, free...)
			}
			if len(codes) < li.Quantity {
				return fmt.Errorf("%w: sku %s has %d free codes, needs %d",
					shared.ErrInsufficientCodes, li.SKU, len(codes), li.Quantity)
			}
			codes = codes[:li.Quantity]
			if err := repos.Codes().Reserve(ctx, codes, saleNo); err != nil {
				return err
			}
			tx.ReservedCodes = append(tx.ReservedCodes, codes...)
			sale.Lines = append(sale.Lines, settlement.SaleLine{
				SKU:       li.SKU,
				Name:      li.Name,
				Quantity:  li.Quantity,
				UnitPrice: li.UnitPrice,
				UnitCost:  cost,
				Codes:     codes,
			})
		}
		if err := repos.Ledger().InsertSale(ctx, sale); err != nil {
			return err
		}

		payments := group.CountablePayments()
		movements := make([]settlement.PaymentMovement, 0, len(payments))
		for _, p := range payments {
			movements = append(movements, settlement.PaymentMovement{
				SaleDocNumber: saleNo,
				OrderRef:      p.OrderRef,
				PaymentID:     p.ID,
				Date:          time.Now(),
				Amount:        p.GrossAmount,
				SellerAccount: s.cfg.SellerAccount,
			})
		}
		if len(movements) > 0 {
			if err := repos.Ledger().InsertPaymentMovements(ctx, movements); err != nil {
				return err
			}
		}

		if hasSKU(res.Items, s.cfg.SKUs.Flex) {
			return repos.Ledger().InsertFlexShipment(ctx, settlement.FlexShipment{
				SaleDocNumber: saleNo,
				Courier:       group.CourierName,
				Cost:          group.DeclaredShippingCost,
				Charge:        res.ShippingCharge,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	tx.LineItems = res.Items
	return tx, nil
}

// planPurchases builds the silent purchase documents for the shipping and
// service lines, minting their document numbers and validating both the
// number range and the resolved supplier before any row is written.
func (s *Service) planPurchases(ctx context.Context, group settlement.OrderGroup, items []settlement.LineItem) ([]settlement.PurchaseDocument, error) {
	plan := make([]settlement.PurchaseDocument, 0, 2)
	for _, li := range items {
		var supplier string
		var cost decimal.Decimal
		switch li.SKU {
		case s.cfg.SKUs.Flex:
			if !li.Subtotal.GreaterThan(decimal.Zero) {
				continue
			}
			supplier = s.courierSupplier(group.CourierName)
			cost = li.Subtotal
		case s.cfg.SKUs.Carrier:
			supplier = s.cfg.CarrierSupplier
			cost = li.UnitPrice
			if li.CostOverride.Valid {
				cost = li.CostOverride.Decimal
			}
			if !cost.GreaterThan(decimal.Zero) {
				continue
			}
		case s.cfg.SKUs.Subsidy:
			// Marketplace subsidy: the unit is acquired at zero cost.
			supplier = s.cfg.CarrierSupplier
			cost = decimal.Zero
		default:
			continue
		}

		if !validSupplier(supplier) {
			return nil, fmt.Errorf("%w: courier %q resolved to supplier %q",
				shared.ErrInvalidSupplier, group.CourierName, supplier)
		}
		number, err := s.counters.NextPurchaseNumber(ctx)
		if err != nil {
			return nil, err
		}
		if number > s.cfg.MaxDocNumber {
			return nil, fmt.Errorf("%w: purchase document %d exceeds %d",
				shared.ErrInvalidDocumentNumber, number, s.cfg.MaxDocNumber)
		}
		plan = append(plan, settlement.PurchaseDocument{
			Number:      number,
			Supplier:    supplier,
			SKU:         li.SKU,
			Description: li.Name,
			Quantity:    li.Quantity,
			UnitCost:    cost,
		})
	}
	return plan, nil
}

// resolveCost applies the cost-resolution priority: explicit override,
// then the shipping cost models, then the last positive purchase cost from
// the catalog. A non-positive result aborts the commit, except for the
// subsidy SKU whose cost is floored instead.
func (s *Service) resolveCost(ctx context.Context, li settlement.LineItem) (decimal.Decimal, error) {
	switch li.SKU {
	case s.cfg.SKUs.Subsidy:
		cost := decimal.Zero
		if li.CostOverride.Valid {
			cost = li.CostOverride.Decimal
		}
		if cost.LessThan(s.cfg.MinSaleCost) {
			cost = s.cfg.MinSaleCost
		}
		return cost, nil
	case s.cfg.SKUs.Flex:
		// Courier pass-through: cost equals what the buyer was charged.
		if !li.CostOverride.Valid {
			return s.positiveCost(li.SKU, li.UnitPrice)
		}
	}

	if li.CostOverride.Valid {
		return s.positiveCost(li.SKU, li.CostOverride.Decimal)
	}
	cost, err := s.catalog.LastPositiveCostFor(ctx, li.SKU)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: sku %s has no purchase history", shared.ErrZeroCost, li.SKU)
		}
		return decimal.Zero, err
	}
	return s.positiveCost(li.SKU, cost)
}

func (s *Service) positiveCost(sku string, cost decimal.Decimal) (decimal.Decimal, error) {
	if !cost.GreaterThan(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: sku %s resolved to %s",
			shared.ErrZeroCost, sku, cost.StringFixed(2))
	}
	return cost, nil
}

// verify recounts the committed rows. Divergences do not undo the commit;
// they are reported so the operator can audit the document.
func (s *Service) verify(ctx context.Context, tx *settlement.LedgerTransaction, group settlement.OrderGroup) *VerificationReport {
	report := &VerificationReport{ExpectedPayments: len(group.CountablePayments())}
	for _, li := range tx.LineItems {
		report.ExpectedUnits += li.Quantity
	}

	var err error
	if report.RecordedUnits, err = s.verifier.SaleQuantityTotal(ctx, tx.SaleDocNumber); err != nil {
		s.logger.Warn("post-commit verification unavailable", zap.Error(err))
		report.Divergences = append(report.Divergences, "verification queries unavailable: "+err.Error())
		return report
	}
	if report.RecordedUnits != report.ExpectedUnits {
		report.Divergences = append(report.Divergences,
			fmt.Sprintf("recorded %d units, expected %d", report.RecordedUnits, report.ExpectedUnits))
	}

	if bySKU, err := s.verifier.SaleQuantitiesBySKU(ctx, tx.SaleDocNumber); err == nil {
		expected := make(map[string]int, len(tx.LineItems))
		for _, li := range tx.LineItems {
			expected[li.SKU] += li.Quantity
		}
		for sku, want := range expected {
			if got := bySKU[sku]; got != want {
				report.Divergences = append(report.Divergences,
					fmt.Sprintf("sku %s recorded %d units, expected %d", sku, got, want))
			}
		}
	}

	if report.ZeroCostLines, err = s.verifier.ZeroCostLineCount(ctx, tx.SaleDocNumber); err == nil && report.ZeroCostLines > 0 {
		report.Divergences = append(report.Divergences,
			fmt.Sprintf("%d sale lines committed with non-positive cost", report.ZeroCostLines))
	}
	if report.RecordedPayments, err = s.verifier.PaymentMovementCount(ctx, tx.SaleDocNumber); err == nil &&
		report.RecordedPayments != report.ExpectedPayments {
		report.Divergences = append(report.Divergences,
			fmt.Sprintf("recorded %d payment movements, expected %d", report.RecordedPayments, report.ExpectedPayments))
	}
	report.ReservedCodes = len(tx.ReservedCodes)
	if report.ReservedCodes != report.ExpectedUnits {
		report.Divergences = append(report.Divergences,
			fmt.Sprintf("reserved %d unit codes, expected %d", report.ReservedCodes, report.ExpectedUnits))
	}

	report.Clean = len(report.Divergences) == 0
	return report
}

// validSupplier rejects empty and all-zero supplier codes.
func validSupplier(code string) bool {
	t := strings.TrimSpace(code)
	if t == "" {
		return false
	}
	for _, r := range t {
		if r != '0' {
			return true
		}
	}
	return false
}

func (s *Service) courierSupplier(courier string) string {
	if code, ok := s.cfg.CourierVendors[strings.ToUpper(strings.TrimSpace(courier))]; ok {
		return code
	}
	return s.cfg.DefaultCourierVendor
}

func (s *Service) reject(attempt *settlement.Attempt, report settlement.RejectionReport) *SettlementResponse {
	attempt.Fail(settlement.StateRejected, report.Reason)
	return &SettlementResponse{
		AttemptID:     attempt.ID.String(),
		State:         string(attempt.State),
		ExpectedTotal: report.ExpectedTotal,
		ActualTotal:   report.ActualTotal,
		Rejection:     &report,
	}
}

func (s *Service) response(attempt *settlement.Attempt, res settlement.ReconciliationResult) *SettlementResponse {
	return &SettlementResponse{
		AttemptID:        attempt.ID.String(),
		State:            string(attempt.State),
		ReferenceBasis:   string(res.ReferenceBasis),
		ExpectedTotal:    res.ExpectedTotal,
		ActualTotal:      res.ActualTotal,
		ExceptionApplied: res.ExceptionApplied,
		Items:            toLineItemResponses(res.Items),
	}
}

func rejectionFor(err error, res settlement.ReconciliationResult) *settlement.RejectionReport {
	report := &settlement.RejectionReport{
		Reason:        err.Error(),
		ExpectedTotal: res.ExpectedTotal,
		ActualTotal:   res.ActualTotal,
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr {
		case shared.ErrInsufficientCodes, shared.ErrZeroCost:
			// SKU is embedded in the wrapped message; surface the code too.
			report.Reason = domainErr.Code + ": " + err.Error()
		}
	}
	return report
}

func hasSKU(items []settlement.LineItem, sku string) bool {
	for _, li := range items {
		if li.SKU == sku {
			return true
		}
	}
	return false
}
