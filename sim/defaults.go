package sim

// DefaultScenario returns a complete, valid baseline scenario sized for a
// large urban ED (one arrival every 8 minutes). Profiles and scenario files
// overlay their values on top of it.
func DefaultScenario(hospital string) Scenario {
	return Scenario{
		Hospital:         hospital,
		Configuration:    ConfigBaseline,
		RunLengthMinutes: 7 * 24 * 60,
		Capacities: map[string]int{
			PoolTriageNurses:   3,
			PoolEDBeds:         40,
			PoolCDUBeds:        24,
			PoolPhysicians:     5,
			PoolScanners:       2,
			PoolRadiologists:   12,
			PoolPorters:        4,
			PoolInpatientBeds:  160,
			PoolDischargeStaff: 14,
		},
		QueuePolicy: QueueAcuity,
		Arrivals:    ArrivalSpec{MeanInterarrivalMinutes: 8},
		AcuityMix: map[Acuity]float64{
			AcuityCritical: 0.10,
			AcuityUrgent:   0.50,
			AcuityStandard: 0.40,
		},
		Routing: RoutingSpec{
			ImagingProbability: map[Acuity]float64{
				AcuityCritical: 0.60,
				AcuityUrgent:   0.35,
				AcuityStandard: 0.15,
			},
			CDUEligibility: map[Acuity]float64{
				AcuityCritical: 0,
				AcuityUrgent:   0.50,
				AcuityStandard: 0.40,
			},
			CDUDischargeProbability: 0.8,
			AdmitProbability: map[Acuity]float64{
				AcuityCritical: 0.85,
				AcuityUrgent:   0.45,
				AcuityStandard: 0.05,
			},
			TransferProbability: map[Acuity]float64{
				AcuityCritical: 0.05,
				AcuityUrgent:   0.02,
				AcuityStandard: 0,
			},
			DischargeRequeueProbability: 0.15,
		},
		Durations: map[string]StageSpec{
			StageTriage: {DistSpec: Uniform(10, 30)},
			StageTreatment: {
				DistSpec: Uniform(10, 30),
				ByAcuity: map[Acuity]DistSpec{
					AcuityCritical: Uniform(30, 60),
					AcuityUrgent:   Uniform(15, 45),
					AcuityStandard: Uniform(10, 20),
				},
			},
			StageCDUObservation: {DistSpec: LogNormal(360, 120)},
			StageImagingScan:    {DistSpec: Uniform(10, 40)},
			StageImagingReport: {
				DistSpec: Uniform(120, 360),
				ByAcuity: map[Acuity]DistSpec{
					AcuityCritical: Uniform(60, 120),
				},
			},
			StageTransportPorter:    {DistSpec: Uniform(15, 30)},
			StageTransportPulley:    {DistSpec: Uniform(5, 10)},
			StageTransportVolunteer: {DistSpec: Uniform(20, 40)},
			StageDischarge:          {DistSpec: Uniform(90, 150)},
			StageInpatientStay: {
				DistSpec: LogNormal(2400, 1200),
				ByAcuity: map[Acuity]DistSpec{
					AcuityCritical: LogNormal(6000, 2500),
					AcuityUrgent:   LogNormal(3600, 1500),
				},
			},
		},
		Reductions: Reductions{
			ImagingRoutine:   0.15,
			ImagingCritical:  0.30,
			Discharge:        0.10,
			DischargeRequeue: 0.50,
		},
		Satisfaction: SatisfactionSpec{
			Initial:              80,
			WaitThresholdMinutes: 30,
			PenaltyPerMinute:     0.05,
			EnhancementBonus:     2,
			AmenityBonus:         10,
			Min:                  1,
			Max:                  100,
		},
		Cost: CostSpec{
			HourlyRates: map[string]float64{
				PoolTriageNurses:   60,
				PoolPhysicians:     180,
				PoolScanners:       30,
				PoolRadiologists:   150,
				PoolPorters:        36,
				PoolVolunteers:     0,
				PoolDischargeStaff: 60,
			},
			ShiftChanges:           "0 7,19 * * *",
			OvertimeMultiplier:     1.5,
			AmenityPerVisit:        2.50,
			EnhancementFixedPerDay: 5000.0 / 30,
		},
		VolunteerHours: HourWindow{StartHour: 8, EndHour: 17},
	}
}
