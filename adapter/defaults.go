package adapter

// Defaults returns the built-in adapter set. The selector values here
// are source configuration, maintained as the sites change their
// markup; operators override them with an adapters file.
func Defaults() []Adapter {
	return []Adapter{
		{
			Name:   "naukri",
			Engine: EngineBrowser,
			EntryURLs: []string{
				"https://www.naukri.com/jobs-in-india-11?functionAreaIdGid=5",
			},
			WaitSelector: ".srp-jobtuple-wrapper",
			List: SelectorMap{
				Card: ".srp-jobtuple-wrapper",
				Fields: map[string]string{
					"title":      "a.title",
					"company":    "a.comp-name",
					"location":   "span.locWdth",
					"experience": "span.expwdth",
					"salary":     "span.sal-wrap span",
					"postedDate": "span.job-post-day",
				},
				Links: map[string]string{
					"applyLink":   "a.title",
					"companyLogo": "img.logoImage",
				},
				Lists: map[string]string{
					"skills": "ul.tags-gt li",
				},
			},
			PreProcess: []PreStep{
				{Action: "dismiss", Selector: "#login_Layer .cross-icon"},
				{Action: "scroll"},
			},
			Pagination: Pagination{
				Strategy:     StrategyNextLink,
				NextSelector: "a.styles_btn-secondary__2AsIP:last-child",
				MaxPages:     10,
			},
			Defaults: map[string]string{
				"employmentType": "Full-time",
			},
		},
		{
			Name:   "indeed",
			Engine: EngineBrowser,
			EntryURLs: []string{
				"https://in.indeed.com/jobs?q=software+developer&l=Remote",
			},
			WaitSelector: "div.job_seen_beacon",
			List: SelectorMap{
				Card: "div.job_seen_beacon",
				Fields: map[string]string{
					"title":       "[id^=jobTitle]",
					"company":     "span.companyName",
					"location":    "div.companyLocation",
					"salary":      "div.metadata.salary-snippet-container",
					"description": "div.job-snippet",
					"postedDate":  "span.date",
				},
				Links: map[string]string{
					"applyLink": "h2.jobTitle a",
				},
			},
			PreProcess: []PreStep{
				{Action: "dismiss", Selector: "#popover-x, .icl-CloseButton"},
			},
			Pagination: Pagination{
				Strategy:     StrategyNextLink,
				NextSelector: "a[data-testid=pagination-page-next]",
				MaxPages:     5,
			},
		},
		{
			Name:   "internshala",
			Engine: EngineStatic,
			EntryURLs: []string{
				"https://internshala.com/internships/software-development-internship/",
			},
			WaitSelector: ".individual_internship",
			List: SelectorMap{
				Card: ".individual_internship",
				Fields: map[string]string{
					"title":    ".job-internship-name",
					"company":  ".company-name",
					"location": ".locations span",
					"salary":   ".stipend",
				},
				Links: map[string]string{
					"applyLink": "a.job-title-href",
				},
			},
			Detail: &SelectorMap{
				Card: ".internship_details",
				Fields: map[string]string{
					"title":        ".heading_title",
					"company":      ".company_name",
					"description":  ".text-container",
					"companyAbout": ".about_company_text_container",
					"experience":   ".job-experience-item .item_body",
					"salary":       ".salary_container",
					"location":     "#location_names span",
					"postedDate":   ".status-success",
				},
				Links: map[string]string{
					"companyLogo": ".internship_logo img",
				},
				Lists: map[string]string{
					"skills": ".round_tabs",
				},
			},
			Pagination: Pagination{
				Strategy:    StrategyCursor,
				URLTemplate: "https://internshala.com/internships/software-development-internship/page-%d/",
				CursorStart: 1,
				MaxPages:    5,
			},
			Defaults: map[string]string{
				"employmentType": "Internship",
				"location":       "Work From Home",
			},
		},
		{
			Name:   "glassdoor",
			Engine: EngineBrowser,
			EntryURLs: []string{
				"https://www.glassdoor.co.in/Job/india-software-engineer-jobs-SRCH_IL.0,5_IN115_KO6,23.htm",
			},
			WaitSelector: "[data-test=jobListing]",
			List: SelectorMap{
				Card: "[data-test=jobListing]",
				Fields: map[string]string{
					"title":         "[data-test=job-title]",
					"company":       ".EmployerProfile_compactEmployerName__9MGcV",
					"location":      "[data-test=emp-location]",
					"salary":        "[data-test=detailSalary]",
					"postedDate":    "[data-test=job-age]",
					"companyRating": ".rating-single-star_RatingText__XENmU",
				},
				Links: map[string]string{
					"applyLink": "a[data-test=job-link]",
				},
			},
			Detail: &SelectorMap{
				Fields: map[string]string{
					"description":    ".JobDetails_jobDescription__uW_fK",
					"companyAbout":   ".CompanyDescription_companyDescription__Gm7_r",
					"companyReviews": ".CompanyRatings_ratingCount__8IHV4",
				},
			},
			PreProcess: []PreStep{
				{Action: "dismiss", Selector: ".CloseButton"},
				{Action: "scroll"},
			},
			Pagination: Pagination{
				Strategy:     StrategyNextLink,
				NextSelector: "[data-test=load-more]",
				MaxPages:     5,
			},
			Defaults: map[string]string{
				"employmentType": "Full-time",
			},
		},
		{
			Name:   "linkedin",
			Engine: EngineStatic,
			EntryURLs: []string{
				"https://www.linkedin.com/jobs/search?keywords=Software%20Developer&location=India&f_TPR=r86400",
			},
			WaitSelector: ".job-search-card",
			List: SelectorMap{
				Card: ".job-search-card",
				Fields: map[string]string{
					"title":      ".base-search-card__title",
					"company":    ".base-search-card__subtitle",
					"location":   ".job-search-card__location",
					"postedDate": "time",
				},
				Links: map[string]string{
					"applyLink": "a.base-card__full-link",
				},
			},
			Detail: &SelectorMap{
				Card: ".description__text",
				Fields: map[string]string{
					"description":  ".description__text",
					"companyName":  ".topcard__org-name-link",
					"companyAbout": ".jobs-company__description",
					"location":     ".topcard__flavor--bullet",
					"postedDate":   ".posted-time-ago__text",
				},
				Links: map[string]string{
					"companyLogo": ".artdeco-entity-image",
				},
			},
			Pagination: Pagination{
				Strategy:    StrategyCursor,
				URLTemplate: "https://www.linkedin.com/jobs/search?keywords=Software%%20Developer&location=India&f_TPR=r86400&pageNum=%d",
				CursorStart: 0,
				MaxPages:    4,
			},
		},
		{
			Name:   "wellfound",
			Engine: EngineBrowser,
			EntryURLs: []string{
				"https://wellfound.com/remote",
			},
			WaitSelector: ".styles_component__sMuDw",
			List: SelectorMap{
				Card: ".mb-4.w-full",
				Fields: map[string]string{
					"title":        "a.text-sm.font-semibold",
					"company":      "h2.inline.text-md.font-semibold",
					"salary":       "span.pl-1.text-xs",
					"postedDate":   "span.text-xs.lowercase",
					"companyAbout": "span.text-xs.text-neutral-1000",
				},
				Links: map[string]string{
					"applyLink":   "a.text-sm.font-semibold",
					"companyLogo": "img.rounded-2xl.object-contain",
				},
			},
			PreProcess: []PreStep{
				{Action: "scroll"},
			},
			Pagination: Pagination{
				Strategy:     StrategyNextLink,
				NextSelector: "button[aria-label=Next]",
				MaxPages:     6,
			},
			Defaults: map[string]string{
				"location":       "Remote",
				"employmentType": "Full-time",
			},
		},
	}
}
